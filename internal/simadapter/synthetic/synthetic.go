// SPDX-License-Identifier: BSD-3-Clause

// Package synthetic provides an in-process simadapter.Adapter driven
// entirely by a caller-fed sequence of event batches: no goroutines, no
// network. It exists for the controller's own test suite and for policies
// developed without a live simulator.
package synthetic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/batsim-go/rjms/internal/simadapter"
)

// Request is one outbound message the controller sent through the
// adapter. Tests inspect Sent to assert the controller issued the
// requests spec.md's scenarios expect.
type Request struct {
	Kind   string
	JobID  string
	JobIDs []string
	Alloc  []int
	ResIDs []int
	PState int
	At     any
}

// Adapter is a simadapter.Adapter that replays a script of EventBatches
// fed to it in advance, one per ProceedSimulation call.
type Adapter struct {
	mu        sync.Mutex
	script    []simadapter.EventBatch
	next      int
	running   bool
	callbacks map[simadapter.EventKind][]simadapter.Callback

	// Sent records every outbound request, in issue order, for test assertions.
	Sent []Request
}

// New builds an Adapter that will hand out script's batches in order, one
// per Start/ProceedSimulation call. The caller may append to script later
// via Feed, e.g. from within a callback, to react to controller requests.
func New(script ...simadapter.EventBatch) *Adapter {
	return &Adapter{
		script:    script,
		callbacks: make(map[simadapter.EventKind][]simadapter.Callback),
	}
}

// Feed appends a batch to the script, to be returned by a future
// ProceedSimulation call.
func (a *Adapter) Feed(batch simadapter.EventBatch) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.script = append(a.script, batch)
}

func (a *Adapter) Start(ctx context.Context, spec simadapter.PlatformSpec) (simadapter.EventBatch, error) {
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()
	return a.ProceedSimulation(ctx)
}

func (a *Adapter) ProceedSimulation(ctx context.Context) (simadapter.EventBatch, error) {
	a.mu.Lock()
	if a.next >= len(a.script) {
		a.mu.Unlock()
		return nil, fmt.Errorf("synthetic adapter: script exhausted")
	}
	batch := a.script[a.next]
	a.next++
	callbacks := a.callbacks
	a.mu.Unlock()

	for _, evt := range batch {
		if evt.Kind == simadapter.EventSimulationEnds {
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
		}
		for _, cb := range callbacks[evt.Kind] {
			cb(evt)
		}
	}

	return batch, nil
}

func (a *Adapter) CallMeLater(ctx context.Context, at time.Duration) error {
	a.record(Request{Kind: "CALL_ME_LATER", At: at})
	return nil
}

func (a *Adapter) ExecuteJob(ctx context.Context, jobID string, allocation []int) error {
	a.record(Request{Kind: "EXECUTE_JOB", JobID: jobID, Alloc: allocation})
	return nil
}

func (a *Adapter) RejectJob(ctx context.Context, jobID string) error {
	a.record(Request{Kind: "REJECT_JOB", JobID: jobID})
	return nil
}

func (a *Adapter) KillJobs(ctx context.Context, jobIDs []string) error {
	a.record(Request{Kind: "KILL_JOBS", JobIDs: jobIDs})
	return nil
}

func (a *Adapter) SetResourcesPState(ctx context.Context, resourceIDs []int, pstateID int) error {
	a.record(Request{Kind: "SET_RESOURCES_PSTATE", ResIDs: resourceIDs, PState: pstateID})
	return nil
}

func (a *Adapter) Finish(ctx context.Context) error {
	a.record(Request{Kind: "FINISH"})
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	return nil
}

func (a *Adapter) SetCallback(kind simadapter.EventKind, cb simadapter.Callback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks[kind] = append(a.callbacks[kind], cb)
}

func (a *Adapter) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *Adapter) record(r Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Sent = append(a.Sent, r)
}
