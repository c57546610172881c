// SPDX-License-Identifier: BSD-3-Clause

package controller_test

import (
	"context"
	"testing"
	"time"

	"github.com/batsim-go/rjms/internal/controller"
	"github.com/batsim-go/rjms/internal/eventbus"
	"github.com/batsim-go/rjms/internal/eventbus/transport"
	"github.com/batsim-go/rjms/internal/simadapter"
	"github.com/batsim-go/rjms/internal/simadapter/synthetic"
)

func startTestBus(t *testing.T) (*eventbus.Bus, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	tr := transport.New(transport.WithListen(false))

	errCh := make(chan error, 1)
	go func() { errCh <- tr.Run(ctx) }()

	bus, err := eventbus.Connect(tr.GetConnProvider(), nil)
	if err != nil {
		cancel()
		t.Fatalf("eventbus.Connect: %v", err)
	}

	return bus, func() {
		bus.Close()
		cancel()
		<-errCh
	}
}

// twoIdleHostSpec describes a platform with two single-resource hosts,
// each with a computation, sleep, switching-on, and switching-off pstate.
func twoIdleHostSpec() simadapter.PlatformSpec {
	pstates := func(base int) []simadapter.PStateSpec {
		return []simadapter.PStateSpec{
			{ID: base + 0, Type: "computation", Watts: 200, IsDefault: true},
			{ID: base + 1, Type: "sleep", Watts: 10},
			{ID: base + 2, Type: "switching-on", Watts: 150},
			{ID: base + 3, Type: "switching-off", Watts: 150},
		}
	}
	return simadapter.PlatformSpec{
		Hosts: []simadapter.HostSpec{
			{ID: 0, Name: "node-0", ResourceIDs: []int{0}, PStates: pstates(0)},
			{ID: 1, Name: "node-1", ResourceIDs: []int{1}, PStates: pstates(10)},
		},
	}
}

// oneHostTwoResourcesSpec describes a platform with a single host backed
// by two resources, for exercising host-sharing between two jobs.
func oneHostTwoResourcesSpec() simadapter.PlatformSpec {
	return simadapter.PlatformSpec{
		Hosts: []simadapter.HostSpec{
			{ID: 0, Name: "node-0", ResourceIDs: []int{0, 1}, PStates: []simadapter.PStateSpec{
				{ID: 0, Type: "computation", Watts: 200, IsDefault: true},
				{ID: 1, Type: "sleep", Watts: 10},
				{ID: 2, Type: "switching-on", Watts: 150},
				{ID: 3, Type: "switching-off", Watts: 150},
			}},
		},
	}
}

func beginsBatch(spec simadapter.PlatformSpec) simadapter.EventBatch {
	return simadapter.EventBatch{{
		Kind:      simadapter.EventSimulationBegins,
		Timestamp: 0,
		Payload:   simadapter.PlatformSpecPayload{Spec: spec},
	}}
}

func newTestController(t *testing.T, script ...simadapter.EventBatch) (*controller.Controller, *synthetic.Adapter, *eventbus.Bus, func()) {
	t.Helper()
	bus, stop := startTestBus(t)
	adapter := synthetic.New(script...)
	c, err := controller.New(adapter, bus)
	if err != nil {
		stop()
		t.Fatalf("controller.New: %v", err)
	}
	return c, adapter, bus, stop
}

// TestAutoRejectOversizeJob covers spec.md §7 scenario 1: a job requesting
// more resources than exist on the platform is rejected before ever
// entering the queue.
func TestAutoRejectOversizeJob(t *testing.T) {
	spec := twoIdleHostSpec()
	script := []simadapter.EventBatch{
		beginsBatch(spec),
		{{
			Kind:      simadapter.EventJobSubmitted,
			Timestamp: 0,
			Payload:   simadapter.JobSubmittedPayload{JobID: "job-0", Res: 3, Walltime: 100 * time.Second},
		}},
	}
	c, adapter, _, stop := newTestController(t, script...)
	defer stop()

	ctx := context.Background()
	if err := c.Start(ctx, spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}

	var rejected bool
	for _, r := range adapter.Sent {
		if r.Kind == "REJECT_JOB" && r.JobID == "job-0" {
			rejected = true
		}
	}
	if !rejected {
		t.Fatalf("expected adapter to receive REJECT_JOB for oversize job, sent=%+v", adapter.Sent)
	}
}

// TestHappyPath covers spec.md §7 scenario 2: a single-resource job
// allocated to an idle host starts immediately.
func TestHappyPath(t *testing.T) {
	spec := twoIdleHostSpec()
	script := []simadapter.EventBatch{
		beginsBatch(spec),
		{{
			Kind:      simadapter.EventJobSubmitted,
			Timestamp: 0,
			Payload:   simadapter.JobSubmittedPayload{JobID: "job-0", Res: 1, Walltime: 100 * time.Second},
		}},
	}
	c, adapter, _, stop := newTestController(t, script...)
	defer stop()

	ctx := context.Background()
	if err := c.Start(ctx, spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}
	if err := c.Allocate(ctx, "job-0", []int{0}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	var executed bool
	for _, r := range adapter.Sent {
		if r.Kind == "EXECUTE_JOB" && r.JobID == "job-0" {
			executed = true
			if len(r.Alloc) != 1 || r.Alloc[0] != 0 {
				t.Fatalf("EXECUTE_JOB allocation = %v, want [0]", r.Alloc)
			}
		}
	}
	if !executed {
		t.Fatalf("expected adapter to receive EXECUTE_JOB, sent=%+v", adapter.Sent)
	}
}

// TestWakeUpGating covers spec.md §7 scenario 3: a job allocated to a
// sleeping host stays runnable until the simulator confirms the host has
// finished waking.
func TestWakeUpGating(t *testing.T) {
	spec := twoIdleHostSpec()
	script := []simadapter.EventBatch{
		beginsBatch(spec),
		// Simulator confirms host 0 has finished powering down into sleep.
		{{
			Kind:      simadapter.EventResourceStateChanged,
			Timestamp: 100,
			Payload:   simadapter.ResourceStateChangedPayload{ResourceIDs: []int{0}, PStateID: 1},
		}},
		{{
			Kind:      simadapter.EventJobSubmitted,
			Timestamp: 150,
			Payload:   simadapter.JobSubmittedPayload{JobID: "job-0", Res: 1, Walltime: 100 * time.Second},
		}},
		// Simulator confirms host 0 has finished waking back into its
		// default computation pstate.
		{{
			Kind:      simadapter.EventResourceStateChanged,
			Timestamp: 160,
			Payload:   simadapter.ResourceStateChangedPayload{ResourceIDs: []int{0}, PStateID: 0},
		}},
	}
	c, adapter, _, stop := newTestController(t, script...)
	defer stop()

	ctx := context.Background()
	if err := c.Start(ctx, spec); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// switch_off(host 0) begins the idle -> switching-off transition and
	// issues the set_resources_pstate request the simulator will later
	// confirm via the scripted RESOURCE_STATE_CHANGED event.
	if err := c.SwitchOff(ctx, []int{0}); err != nil {
		t.Fatalf("SwitchOff: %v", err)
	}

	// Drain the sleep confirmation (switching-off -> sleeping).
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}
	// Drain the job submission.
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}

	if err := c.Allocate(ctx, "job-0", []int{0}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	for _, r := range adapter.Sent {
		if r.Kind == "EXECUTE_JOB" {
			t.Fatalf("job should not have started while host 0 is asleep, sent=%+v", adapter.Sent)
		}
	}

	// Host 0 confirms it is awake (switching-on -> idle via computation pstate).
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}

	var executed bool
	for _, r := range adapter.Sent {
		if r.Kind == "EXECUTE_JOB" && r.JobID == "job-0" {
			executed = true
		}
	}
	if !executed {
		t.Fatalf("expected job-0 to start once host 0 finished waking, sent=%+v", adapter.Sent)
	}
}

// TestInfiniteWalltimeJob covers spec.md §7 scenario 4: a job with no
// declared walltime runs to completion only via an explicit JOB_COMPLETED.
func TestInfiniteWalltimeJob(t *testing.T) {
	spec := twoIdleHostSpec()
	script := []simadapter.EventBatch{
		beginsBatch(spec),
		{{
			Kind:      simadapter.EventJobSubmitted,
			Timestamp: 0,
			Payload:   simadapter.JobSubmittedPayload{JobID: "job-0", Res: 1, Walltime: 0},
		}},
	}
	c, _, _, stop := newTestController(t, script...)
	defer stop()

	ctx := context.Background()
	if err := c.Start(ctx, spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}

	if err := c.Allocate(ctx, "job-0", []int{0}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !c.IsRunning() {
		t.Fatalf("controller should still be running with an outstanding infinite-walltime job")
	}
}

// TestKillJobDoesNotPreTerminate covers spec.md §4.5: kill_job sends the
// adapter request but does not locally move the job to completed until
// JOB_KILLED arrives.
func TestKillJobDoesNotPreTerminate(t *testing.T) {
	spec := twoIdleHostSpec()
	script := []simadapter.EventBatch{
		beginsBatch(spec),
		{{
			Kind:      simadapter.EventJobSubmitted,
			Timestamp: 0,
			Payload:   simadapter.JobSubmittedPayload{JobID: "job-0", Res: 1, Walltime: 100 * time.Second},
		}},
		{{
			Kind:      simadapter.EventJobKilled,
			Timestamp: 5,
			Payload:   simadapter.JobKilledPayload{JobIDs: []string{"job-0"}},
		}},
	}
	c, adapter, _, stop := newTestController(t, script...)
	defer stop()

	ctx := context.Background()
	if err := c.Start(ctx, spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}
	if err := c.Allocate(ctx, "job-0", []int{0}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := c.KillJob(ctx, "job-0"); err != nil {
		t.Fatalf("KillJob: %v", err)
	}

	var killed bool
	for _, r := range adapter.Sent {
		if r.Kind == "KILL_JOBS" {
			killed = true
		}
	}
	if !killed {
		t.Fatalf("expected adapter to receive KILL_JOBS, sent=%+v", adapter.Sent)
	}

	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}
}

// TestSequentialAllocationOnSameHost covers spec.md §7 scenario 5: a
// second job can be allocated to a resource only after the first job
// occupying it has completed and released it, and the agenda's
// reserved_time reflects only the second job's remaining reservation
// once it is the sole holder.
func TestSequentialAllocationOnSameHost(t *testing.T) {
	spec := twoIdleHostSpec()
	script := []simadapter.EventBatch{
		beginsBatch(spec),
		{{
			Kind:      simadapter.EventJobSubmitted,
			Timestamp: 0,
			Payload:   simadapter.JobSubmittedPayload{JobID: "job-a", Res: 1, Walltime: 100 * time.Second},
		}},
		{{
			Kind:      simadapter.EventJobCompleted,
			Timestamp: 50 * time.Second,
			Payload:   simadapter.JobCompletedPayload{JobID: "job-a", FinalState: "completed-ok"},
		}},
		{{
			Kind:      simadapter.EventJobSubmitted,
			Timestamp: 50 * time.Second,
			Payload:   simadapter.JobSubmittedPayload{JobID: "job-b", Res: 1, Walltime: 200 * time.Second},
		}},
	}
	c, _, _, stop := newTestController(t, script...)
	defer stop()

	ctx := context.Background()
	if err := c.Start(ctx, spec); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Drain job-a's submission and allocate it to resource 0.
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}
	if err := c.Allocate(ctx, "job-a", []int{0}); err != nil {
		t.Fatalf("Allocate job-a: %v", err)
	}

	// A second Start is refused while the simulation is already running.
	if err := c.Start(ctx, spec); err == nil {
		t.Fatalf("expected Start to fail while a simulation is already running")
	}

	// Drain job-a's completion, which releases resource 0 back to the agenda.
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime (job-a completion): %v", err)
	}
	// Drain job-b's submission.
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime (job-b submission): %v", err)
	}

	if err := c.Allocate(ctx, "job-b", []int{0}); err != nil {
		t.Fatalf("Allocate job-b onto the now-free resource 0: %v", err)
	}

	reserved := c.ReservedTime(60 * time.Second)
	if len(reserved) != 2 {
		t.Fatalf("ReservedTime length = %d, want 2", len(reserved))
	}
	if got, want := reserved[0], 190*time.Second; got != want {
		t.Fatalf("reserved_time(resource 0, t=60s) = %v, want %v", got, want)
	}
}

// TestHostStaysComputingWhileSiblingJobRuns covers spec.md §8: for all
// jobs in running, every host parenting an allocated resource is in state
// computing. Two jobs share host 0's two resources; completing one must
// not flip the host back to idle (and so allow switch_off) while the
// other job is still running on the host's other resource.
func TestHostStaysComputingWhileSiblingJobRuns(t *testing.T) {
	spec := oneHostTwoResourcesSpec()
	script := []simadapter.EventBatch{
		beginsBatch(spec),
		{
			{
				Kind:      simadapter.EventJobSubmitted,
				Timestamp: 0,
				Payload:   simadapter.JobSubmittedPayload{JobID: "job-a", Res: 1, Walltime: 50 * time.Second},
			},
			{
				Kind:      simadapter.EventJobSubmitted,
				Timestamp: 0,
				Payload:   simadapter.JobSubmittedPayload{JobID: "job-b", Res: 1, Walltime: 100 * time.Second},
			},
		},
		{{
			Kind:      simadapter.EventJobCompleted,
			Timestamp: 50 * time.Second,
			Payload:   simadapter.JobCompletedPayload{JobID: "job-a", FinalState: "completed-ok"},
		}},
	}
	c, _, _, stop := newTestController(t, script...)
	defer stop()

	ctx := context.Background()
	if err := c.Start(ctx, spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime (submissions): %v", err)
	}

	if err := c.Allocate(ctx, "job-a", []int{0}); err != nil {
		t.Fatalf("Allocate job-a: %v", err)
	}
	if err := c.Allocate(ctx, "job-b", []int{1}); err != nil {
		t.Fatalf("Allocate job-b: %v", err)
	}

	// Drain job-a's completion: it releases resource 0, but resource 1 is
	// still held by job-b, so host 0 must stay computing.
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime (job-a completion): %v", err)
	}

	if err := c.SwitchOff(ctx, []int{0}); err == nil {
		t.Fatalf("expected switch_off to fail while job-b still runs on host 0's resource 1")
	}
}

// TestForcedEndAtSimulationTimeBound covers spec.md §7 scenario 6:
// WithSimulationTimeBound forces a drain once current_time reaches the
// bound, regardless of cohort state, via a REQUESTED_CALL wake-up.
func TestForcedEndAtSimulationTimeBound(t *testing.T) {
	spec := twoIdleHostSpec()
	script := []simadapter.EventBatch{
		beginsBatch(spec),
		{{
			Kind:      simadapter.EventRequestedCall,
			Timestamp: 1000 * time.Second,
			Payload:   simadapter.RequestedCallPayload{At: 1000 * time.Second},
		}},
	}
	bus, stop := startTestBus(t)
	defer stop()

	adapter := synthetic.New(script...)
	c, err := controller.New(adapter, bus, controller.WithSimulationTimeBound(1000*time.Second))
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}

	ctx := context.Background()
	if err := c.Start(ctx, spec); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.ProceedTime(ctx, 0); err != nil {
		t.Fatalf("ProceedTime: %v", err)
	}

	if c.IsRunning() {
		t.Fatalf("controller should have stopped once simulation_time bound was reached")
	}
}
