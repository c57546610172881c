// SPDX-License-Identifier: BSD-3-Clause

// Package job defines the Job type and its lifecycle states. A Job is
// identified by a string id assigned by the submitter (the workload source
// or a policy), not generated internally, so that resubmission and
// cross-referencing with an external trace stay stable.
package job

import (
	"math"
	"time"
)

// State is a job's position in the lifecycle
// submitted → (rejected | runnable → running → {completed-ok,
// completed-killed, completed-walltime}). No state is ever entered twice.
type State int

const (
	// StateSubmitted is the state of a job that has been accepted into the queue.
	StateSubmitted State = iota
	// StateRunnable is the state of a job that has an allocation but is
	// waiting for its hosts to become ready.
	StateRunnable
	// StateRunning is the state of a job actively executing on its allocation.
	StateRunning
	// StateCompletedOK is the terminal state for a job that finished normally.
	StateCompletedOK
	// StateCompletedKilled is the terminal state for a job terminated by kill_jobs.
	StateCompletedKilled
	// StateCompletedWalltime is the terminal state for a job terminated by walltime expiry.
	StateCompletedWalltime
	// StateRejected is the terminal state for a job that never entered the queue.
	StateRejected
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateRunnable:
		return "runnable"
	case StateRunning:
		return "running"
	case StateCompletedOK:
		return "completed-ok"
	case StateCompletedKilled:
		return "completed-killed"
	case StateCompletedWalltime:
		return "completed-walltime"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether s is one of the states a job never leaves.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompletedOK, StateCompletedKilled, StateCompletedWalltime, StateRejected:
		return true
	default:
		return false
	}
}

// InfiniteWalltime marks a job that has no declared walltime bound.
const InfiniteWalltime = time.Duration(math.MaxInt64)

// Job is a unit of work submitted to the controller.
type Job struct {
	// ID is assigned by the submitter and never regenerated internally.
	ID string
	// Res is the number of resources this job requires.
	Res int
	// Walltime is the user-declared maximum run duration; InfiniteWalltime if absent.
	Walltime time.Duration
	// SubTime is the simulation time at which this job was submitted.
	SubTime time.Duration

	state State

	// Allocation is the ordered list of resource ids bound to this job. It
	// is set at most once, by Controller.Allocate.
	Allocation []int

	// StartTime and StopTime are set once the job starts/finishes
	// respectively. StartTime <= StopTime always holds once both are set.
	StartTime time.Duration
	StopTime  time.Duration
	hasStart  bool
	hasStop   bool
}

// New creates a Job in StateSubmitted. Walltime should be InfiniteWalltime
// when the caller has no walltime bound for this job.
func New(id string, res int, walltime time.Duration, subTime time.Duration) *Job {
	return &Job{
		ID:       id,
		Res:      res,
		Walltime: walltime,
		SubTime:  subTime,
		state:    StateSubmitted,
	}
}

// State returns the job's current lifecycle state.
func (j *Job) State() State {
	return j.state
}

// SetState transitions the job to s. Callers (the controller only) are
// responsible for respecting the legal transition graph; this setter does
// not itself validate it, mirroring the controller's exclusive-mutator
// role over job state described in the data model.
func (j *Job) SetState(s State) {
	j.state = s
}

// HasWalltime reports whether this job has a finite walltime bound.
func (j *Job) HasWalltime() bool {
	return j.Walltime != InfiniteWalltime
}

// SetAllocation binds resourceIDs to this job. It is a programming error to
// call this more than once on the same job; the controller enforces that at
// the allocate call site rather than here.
func (j *Job) SetAllocation(resourceIDs []int) {
	j.Allocation = append([]int(nil), resourceIDs...)
}

// SetStartTime records when the job began executing.
func (j *Job) SetStartTime(t time.Duration) {
	j.StartTime = t
	j.hasStart = true
}

// SetStopTime records when the job stopped executing.
func (j *Job) SetStopTime(t time.Duration) {
	j.StopTime = t
	j.hasStop = true
}

// HasStarted reports whether SetStartTime has been called.
func (j *Job) HasStarted() bool {
	return j.hasStart
}

// HasStopped reports whether SetStopTime has been called.
func (j *Job) HasStopped() bool {
	return j.hasStop
}

// EndTime returns the time at which a running job with a finite walltime is
// expected to end, measured from its start time. It is only meaningful once
// the job has started.
func (j *Job) EndTime() time.Duration {
	if !j.HasWalltime() {
		return InfiniteWalltime
	}
	return j.StartTime + j.Walltime
}
