// SPDX-License-Identifier: BSD-3-Clause

// Package eventbus defines the RJMS domain event taxonomy and publishes it
// over the embedded NATS transport in internal/eventbus/transport, while
// also guaranteeing synchronous, registration-ordered dispatch to local
// subscribers registered via Bus.Subscribe -- NATS itself only guarantees
// delivery, not that independently-registered subscriptions observe events
// in registration order, and the controller's policy surface depends on
// that ordering. External processes that want their own subscription can
// still dial in via Bus.RawConn and subscribe to Kind.subject() directly.
package eventbus

import "time"

// Kind names one type of domain event this module emits.
type Kind string

const (
	KindSimulationBegins            Kind = "SIMULATION_BEGINS"
	KindSimulationEnds              Kind = "SIMULATION_ENDS"
	KindJobSubmitted                Kind = "JOB_SUBMITTED"
	KindJobAllocated                Kind = "JOB_ALLOCATED"
	KindJobStarted                  Kind = "JOB_STARTED"
	KindJobCompleted                Kind = "JOB_COMPLETED"
	KindJobKilled                   Kind = "JOB_KILLED"
	KindJobRejected                 Kind = "JOB_REJECTED"
	KindHostStateChanged            Kind = "HOST_STATE_CHANGED"
	KindHostComputationPStateChange Kind = "HOST_COMPUTATION_POWER_STATE_CHANGED"
)

// subject returns the NATS subject a Kind is published under.
func (k Kind) subject() string {
	return "rjms.event." + string(k)
}

// Event is the envelope published for every domain occurrence. Payload is
// one of the payload types below, chosen by Kind, or nil for kinds that
// carry none.
type Event struct {
	Kind      Kind        `json:"kind"`
	Timestamp time.Duration `json:"timestamp"` // simulation time, not wall-clock
	Payload   any         `json:"payload"`
}

// JobPayload accompanies every job-lifecycle event.
type JobPayload struct {
	JobID      string `json:"job_id"`
	Allocation []int  `json:"allocation,omitempty"`
}

// SimulationBeginsPayload accompanies SIMULATION_BEGINS. RunID correlates
// every event published during one Start/Close lifetime, independent of
// simulation time, which resets to zero on each run.
type SimulationBeginsPayload struct {
	RunID string `json:"run_id"`
}

// HostStatePayload accompanies HOST_STATE_CHANGED and
// HOST_COMPUTATION_POWER_STATE_CHANGED events.
type HostStatePayload struct {
	HostID         int    `json:"host_id"`
	PreviousState  string `json:"previous_state,omitempty"`
	CurrentState   string `json:"current_state,omitempty"`
	CurrentPStateID int   `json:"current_pstate_id"`
}
