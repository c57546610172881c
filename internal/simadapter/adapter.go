// SPDX-License-Identifier: BSD-3-Clause

// Package simadapter defines the typed bridge between the RJMS controller
// and an underlying discrete-event platform simulator. The controller
// depends only on the Adapter interface; internal/simadapter/synthetic and
// internal/simadapter/socket are its two concrete realizations, mirroring
// the teacher's dynamic-dispatch-over-backends pattern for device access.
package simadapter

import (
	"context"
	"time"
)

// EventKind names one kind of message the simulator can deliver.
type EventKind string

const (
	EventSimulationBegins     EventKind = "SIMULATION_BEGINS"
	EventSimulationEnds       EventKind = "SIMULATION_ENDS"
	EventJobSubmitted         EventKind = "JOB_SUBMITTED"
	EventJobCompleted         EventKind = "JOB_COMPLETED"
	EventJobKilled            EventKind = "JOB_KILLED"
	EventResourceStateChanged EventKind = "RESOURCE_STATE_CHANGED"
	EventRequestedCall        EventKind = "REQUESTED_CALL"
	EventNotify               EventKind = "NOTIFY"
)

// NotifyKind distinguishes the three NOTIFY sub-types the simulator sends.
type NotifyKind string

const (
	NotifyNoMoreStaticJobToSubmit    NotifyKind = "no_more_static_job_to_submit"
	NotifyRegistrationFinished       NotifyKind = "registration_finished"
	NotifyNoMoreExternalEventToOccur NotifyKind = "no_more_external_event_to_occur"
)

// Event is one timestamped message from the simulator. Payload is one of
// the *Payload types below, chosen by Kind.
type Event struct {
	Kind      EventKind
	Timestamp time.Duration
	Payload   any
}

// EventBatch is a non-empty, timestamp-ordered group of events the
// simulator delivers atomically from a single proceed_simulation call.
type EventBatch []Event

// PlatformSpecPayload is the payload of a SIMULATION_BEGINS event: the raw
// platform description the caller passed to Start, echoed back once the
// simulator has validated and loaded it.
type PlatformSpecPayload struct {
	Spec PlatformSpec
}

// JobSubmittedPayload is the payload of a JOB_SUBMITTED event.
type JobSubmittedPayload struct {
	JobID    string
	Res      int
	Walltime time.Duration
}

// JobCompletedPayload is the payload of a JOB_COMPLETED event.
type JobCompletedPayload struct {
	JobID      string
	FinalState string
}

// JobKilledPayload is the payload of a JOB_KILLED event. JobIDs is the
// authoritative list of jobs to terminate (see the resolved Open Question
// on job_killed in the controller's design notes).
type JobKilledPayload struct {
	JobIDs []string
}

// ResourceStateChangedPayload is the payload of a RESOURCE_STATE_CHANGED event.
type ResourceStateChangedPayload struct {
	ResourceIDs []int
	PStateID    int
}

// RequestedCallPayload is the payload of a REQUESTED_CALL event, the
// wake-up previously scheduled via CallMeLater.
type RequestedCallPayload struct {
	At time.Duration
}

// NotifyPayload is the payload of a NOTIFY event.
type NotifyPayload struct {
	Kind NotifyKind
}

// PlatformSpec is the static description of hosts and their power states
// passed to Start.
type PlatformSpec struct {
	Hosts []HostSpec
}

// HostSpec describes one host in a PlatformSpec.
type HostSpec struct {
	ID          int
	Name        string
	ResourceIDs []int
	PStates     []PStateSpec
}

// PStateSpec describes one power state in a HostSpec.
type PStateSpec struct {
	ID        int
	Type      string // "computation", "sleep", "switching-on", "switching-off"
	Watts     float64
	IsDefault bool
}

// Callback is invoked, in registration order, for every Event of the Kind
// it was registered against as the event arrives from the simulator.
type Callback func(Event)

// Adapter is the capability set the controller needs from a simulator
// backend: connect, send requests, receive event batches, finish.
type Adapter interface {
	// Start initializes the simulation with spec and blocks until the first
	// event batch arrives. That first batch's only event must be
	// SIMULATION_BEGINS.
	Start(ctx context.Context, spec PlatformSpec) (EventBatch, error)

	// ProceedSimulation releases a waiting simulator and blocks for the next
	// event batch at a timestamp >= the previously observed current time.
	ProceedSimulation(ctx context.Context) (EventBatch, error)

	// CallMeLater schedules a REQUESTED_CALL event at absolute time at.
	CallMeLater(ctx context.Context, at time.Duration) error

	// ExecuteJob requests the simulator start jobID on the given resource
	// allocation.
	ExecuteJob(ctx context.Context, jobID string, allocation []int) error

	// RejectJob requests the simulator discard jobID without ever running it.
	RejectJob(ctx context.Context, jobID string) error

	// KillJobs requests the simulator terminate every listed job immediately.
	KillJobs(ctx context.Context, jobIDs []string) error

	// SetResourcesPState requests a power-state change for the given resources.
	SetResourcesPState(ctx context.Context, resourceIDs []int, pstateID int) error

	// Finish forces the termination exchange with the simulator.
	Finish(ctx context.Context) error

	// SetCallback installs an internal callback invoked for every arriving
	// event of kind, in the order calls to this method were made for that
	// kind. These are adapter-level hooks the controller uses to wire its
	// own event handlers; they are distinct from the user-facing domain
	// event subscriptions the event bus carries.
	SetCallback(kind EventKind, cb Callback)

	// Running reports whether the simulator side still considers the
	// simulation in progress (false once SIMULATION_ENDS has been observed
	// or Finish has completed).
	Running() bool
}
