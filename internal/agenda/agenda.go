// SPDX-License-Identifier: BSD-3-Clause

// Package agenda tracks, per resource, which job (if any) currently holds a
// reservation on it. It is the bookkeeping layer the controller's allocator
// and host-availability queries sit on top of; it holds no power-state or
// scheduling policy of its own.
package agenda

import (
	"fmt"
	"time"

	"github.com/batsim-go/rjms/internal/job"
	"github.com/batsim-go/rjms/internal/platform"
)

// ErrAlreadyReserved indicates a reserve call named a resource that is
// already held by another job.
var ErrAlreadyReserved = fmt.Errorf("resource already reserved")

// Agenda is the reservation map over a fixed Platform: one entry per
// resource id, holding the job (if any) currently occupying it.
type Agenda struct {
	platform     *platform.Platform
	reservations map[int]*job.Job // resource id -> holding job, nil if free
	order        []int            // resource ids in ascending order
}

// New builds an Agenda with every platform resource initially unreserved.
func New(p *platform.Platform) *Agenda {
	ids := p.AllResourceIDs()
	reservations := make(map[int]*job.Job, len(ids))
	for _, id := range ids {
		reservations[id] = nil
	}
	return &Agenda{
		platform:     p,
		reservations: reservations,
		order:        ids,
	}
}

// AvailableResources returns the ids of every currently unreserved
// resource, in ascending order.
func (a *Agenda) AvailableResources() []int {
	out := make([]int, 0, len(a.order))
	for _, id := range a.order {
		if a.reservations[id] == nil {
			out = append(out, id)
		}
	}
	return out
}

// AvailableNodes returns the ids of every host all of whose resources are
// currently unreserved.
func (a *Agenda) AvailableNodes() []int {
	busyByHost := make(map[int]bool)
	for _, id := range a.order {
		if a.reservations[id] != nil {
			r, err := a.platform.GetResource(id)
			if err == nil {
				busyByHost[r.HostID] = true
			}
		}
	}

	var out []int
	for _, h := range a.platform.Hosts() {
		if !busyByHost[h.ID] {
			out = append(out, h.ID)
		}
	}
	return out
}

// Reserve binds j to every resource id in j.Allocation. It is an error if
// any of those resources is already held by another job.
func (a *Agenda) Reserve(j *job.Job) error {
	for _, id := range j.Allocation {
		if held, ok := a.reservations[id]; !ok {
			return fmt.Errorf("%w: %d", agendaErrResourceNotFound, id)
		} else if held != nil {
			return fmt.Errorf("%w: resource %d held by job %s", ErrAlreadyReserved, id, held.ID)
		}
	}
	for _, id := range j.Allocation {
		a.reservations[id] = j
	}
	return nil
}

var agendaErrResourceNotFound = fmt.Errorf("resource not found in agenda")

// Release frees every resource id given, regardless of which job (if any)
// held it.
func (a *Agenda) Release(resourceIDs ...int) {
	for _, id := range resourceIDs {
		a.reservations[id] = nil
	}
}

// Progress returns, for each resource in ascending id order, the fraction
// of its current job's walltime remaining: 0 for an unreserved resource,
// 1-(elapsed/walltime) clamped to be non-negative for a running job with a
// finite walltime, 0 for a running job with an infinite walltime, 1 for a reserved-but-not-yet-
// running job (e.g. waiting on a host wake-up), matching batsim_py's
// get_progress.
func (a *Agenda) Progress(now time.Duration) []float64 {
	out := make([]float64, len(a.order))
	for i, id := range a.order {
		j := a.reservations[id]
		switch {
		case j == nil:
			out[i] = 0
		case j.State() == job.StateRunning:
			runtime := now - j.StartTime
			if j.HasWalltime() {
				out[i] = 1 - float64(runtime)/float64(j.Walltime)
				if out[i] < 0 {
					out[i] = 0
				}
			} else {
				out[i] = 0
			}
		default:
			out[i] = 1
		}
	}
	return out
}

// ReservedTime returns, for each resource in ascending id order, how much
// longer its current job is reserved for: 0 for an unreserved resource,
// the remaining walltime for a running job, the full walltime for a
// reserved-but-not-yet-running job, matching batsim_py's get_reserved_time.
// A job with no declared walltime reports job.InfiniteWalltime.
func (a *Agenda) ReservedTime(now time.Duration) []time.Duration {
	out := make([]time.Duration, len(a.order))
	for i, id := range a.order {
		j := a.reservations[id]
		switch {
		case j == nil:
			out[i] = 0
		case !j.HasWalltime():
			out[i] = job.InfiniteWalltime
		case j.State() == job.StateRunning:
			out[i] = (j.StartTime + j.Walltime) - now
		default:
			out[i] = j.Walltime
		}
	}
	return out
}

// ResourceIDs returns every resource id tracked by the agenda, in ascending order.
func (a *Agenda) ResourceIDs() []int {
	return append([]int(nil), a.order...)
}

// HolderOf returns the job currently holding resourceID, or nil if unreserved.
func (a *Agenda) HolderOf(resourceID int) *job.Job {
	return a.reservations[resourceID]
}
