// SPDX-License-Identifier: BSD-3-Clause

package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/batsim-go/rjms/internal/simadapter"
)

// endOfBatch is this adapter's own frame type marking the end of a group
// of events delivered atomically from one proceed_simulation tick. It is
// this module's concrete realization of the "event batch" boundary the
// distilled spec leaves unspecified at the wire level.
const endOfBatch = "END_OF_BATCH"

// Adapter bridges simadapter.Adapter to a framed JSON connection. Its
// connection-read goroutine is the one place genuine concurrency exists in
// this module: decoded batches are handed to ProceedSimulation strictly
// through a single buffered channel, so the controller never observes
// partial or interleaved mutation from it.
type Adapter struct {
	conn net.Conn

	mu        sync.Mutex
	callbacks map[simadapter.EventKind][]simadapter.Callback
	running   bool

	batches chan simadapter.EventBatch
	readErr chan error
}

// New wraps conn as a simadapter.Adapter. The connection-read goroutine is
// started by Run (see Component below), not by New, so the adapter can be
// supervised like any other long-running component.
func New(conn net.Conn) *Adapter {
	return &Adapter{
		conn:      conn,
		callbacks: make(map[simadapter.EventKind][]simadapter.Callback),
		batches:   make(chan simadapter.EventBatch, 1),
		readErr:   make(chan error, 1),
	}
}

// Name implements internal/supervisor.Component.
func (a *Adapter) Name() string {
	return "simadapter-socket-reader"
}

// Run implements internal/supervisor.Component: it reads frames off the
// connection until ctx is canceled or the connection fails, decoding and
// grouping them into batches delivered to ProceedSimulation.
func (a *Adapter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := a.readOneBatch()
		if err != nil {
			select {
			case a.readErr <- err:
			case <-ctx.Done():
			}
			return err
		}

		select {
		case a.batches <- batch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (a *Adapter) readOneBatch() (simadapter.EventBatch, error) {
	var batch simadapter.EventBatch

	for {
		f, err := readFrame(a.conn)
		if err != nil {
			return nil, err
		}
		if f.Type == endOfBatch {
			return batch, nil
		}

		evt, err := decodeEvent(f)
		if err != nil {
			return nil, err
		}
		batch = append(batch, evt)
	}
}

func decodeEvent(f frame) (simadapter.Event, error) {
	evt := simadapter.Event{
		Kind:      simadapter.EventKind(f.Type),
		Timestamp: time.Duration(f.Timestamp * float64(time.Second)),
	}

	switch evt.Kind {
	case simadapter.EventSimulationBegins:
		var p simadapter.PlatformSpecPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return evt, fmt.Errorf("%w: SIMULATION_BEGINS: %w", ErrDecodeFailed, err)
		}
		evt.Payload = p
	case simadapter.EventJobSubmitted:
		var p simadapter.JobSubmittedPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return evt, fmt.Errorf("%w: JOB_SUBMITTED: %w", ErrDecodeFailed, err)
		}
		evt.Payload = p
	case simadapter.EventJobCompleted:
		var p simadapter.JobCompletedPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return evt, fmt.Errorf("%w: JOB_COMPLETED: %w", ErrDecodeFailed, err)
		}
		evt.Payload = p
	case simadapter.EventJobKilled:
		var p simadapter.JobKilledPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return evt, fmt.Errorf("%w: JOB_KILLED: %w", ErrDecodeFailed, err)
		}
		evt.Payload = p
	case simadapter.EventResourceStateChanged:
		var p simadapter.ResourceStateChangedPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return evt, fmt.Errorf("%w: RESOURCE_STATE_CHANGED: %w", ErrDecodeFailed, err)
		}
		evt.Payload = p
	case simadapter.EventRequestedCall:
		var p simadapter.RequestedCallPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return evt, fmt.Errorf("%w: REQUESTED_CALL: %w", ErrDecodeFailed, err)
		}
		evt.Payload = p
	case simadapter.EventNotify:
		var p simadapter.NotifyPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return evt, fmt.Errorf("%w: NOTIFY: %w", ErrDecodeFailed, err)
		}
		evt.Payload = p
	case simadapter.EventSimulationEnds:
		// no payload
	default:
		return evt, fmt.Errorf("%w: %s", ErrUnknownEventKind, f.Type)
	}

	return evt, nil
}

func (a *Adapter) send(f frame) error {
	return writeFrame(a.conn, f)
}

func marshalPayload(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return data, nil
}

func (a *Adapter) Start(ctx context.Context, spec simadapter.PlatformSpec) (simadapter.EventBatch, error) {
	a.mu.Lock()
	a.running = true
	a.mu.Unlock()

	payload, err := marshalPayload(spec)
	if err != nil {
		return nil, err
	}
	if err := a.send(frame{Type: "START", Payload: payload}); err != nil {
		return nil, err
	}
	return a.nextBatch(ctx)
}

func (a *Adapter) ProceedSimulation(ctx context.Context) (simadapter.EventBatch, error) {
	if err := a.send(frame{Type: "PROCEED_SIMULATION"}); err != nil {
		return nil, err
	}
	return a.nextBatch(ctx)
}

// nextBatch blocks for the next batch the reader goroutine has decoded,
// then dispatches registered callbacks on the caller's goroutine -- always
// the controller's single logical thread of control -- before returning,
// so no callback ever observes or causes concurrent controller mutation.
func (a *Adapter) nextBatch(ctx context.Context) (simadapter.EventBatch, error) {
	select {
	case batch := <-a.batches:
		a.mu.Lock()
		callbacksByKind := make(map[simadapter.EventKind][]simadapter.Callback, len(a.callbacks))
		for k, v := range a.callbacks {
			callbacksByKind[k] = append([]simadapter.Callback(nil), v...)
		}
		a.mu.Unlock()

		for _, evt := range batch {
			if evt.Kind == simadapter.EventSimulationEnds {
				a.mu.Lock()
				a.running = false
				a.mu.Unlock()
			}
			for _, cb := range callbacksByKind[evt.Kind] {
				cb(evt)
			}
		}
		return batch, nil
	case err := <-a.readErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Adapter) CallMeLater(ctx context.Context, at time.Duration) error {
	payload, err := marshalPayload(map[string]float64{"at": at.Seconds()})
	if err != nil {
		return err
	}
	return a.send(frame{Type: "CALL_ME_LATER", Payload: payload})
}

func (a *Adapter) ExecuteJob(ctx context.Context, jobID string, allocation []int) error {
	payload, err := marshalPayload(map[string]any{"job_id": jobID, "allocation": allocation})
	if err != nil {
		return err
	}
	return a.send(frame{Type: "EXECUTE_JOB", Payload: payload})
}

func (a *Adapter) RejectJob(ctx context.Context, jobID string) error {
	payload, err := marshalPayload(map[string]string{"job_id": jobID})
	if err != nil {
		return err
	}
	return a.send(frame{Type: "REJECT_JOB", Payload: payload})
}

func (a *Adapter) KillJobs(ctx context.Context, jobIDs []string) error {
	payload, err := marshalPayload(map[string][]string{"job_ids": jobIDs})
	if err != nil {
		return err
	}
	return a.send(frame{Type: "KILL_JOBS", Payload: payload})
}

func (a *Adapter) SetResourcesPState(ctx context.Context, resourceIDs []int, pstateID int) error {
	payload, err := marshalPayload(map[string]any{"resource_ids": resourceIDs, "pstate_id": pstateID})
	if err != nil {
		return err
	}
	return a.send(frame{Type: "SET_RESOURCES_PSTATE", Payload: payload})
}

func (a *Adapter) Finish(ctx context.Context) error {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	return a.send(frame{Type: "FINISH"})
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
