// SPDX-License-Identifier: BSD-3-Clause

package controller

import (
	"context"

	"github.com/batsim-go/rjms/internal/agenda"
	"github.com/batsim-go/rjms/internal/eventbus"
	"github.com/batsim-go/rjms/internal/job"
	"github.com/batsim-go/rjms/internal/platform"
	"github.com/batsim-go/rjms/internal/simadapter"
)

// Handlers registered with the adapter always run on the controller's own
// logical thread of control (see the socket adapter's dispatch contract),
// so they use context.Background() for the adapter/bus calls they issue
// themselves rather than threading a caller's context through the
// callback signature simadapter.Callback does not carry.

func (c *Controller) handleSimulationBegins(evt simadapter.Event) {
	ctx := context.Background()
	p := evt.Payload.(simadapter.PlatformSpecPayload)

	plat, err := buildPlatform(p.Spec)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to build platform from SIMULATION_BEGINS", "error", err)
		return
	}

	c.mu.Lock()
	c.platform = plat
	c.agenda = agenda.New(plat)
	runID := c.runID
	c.mu.Unlock()

	c.publish(ctx, eventbus.KindSimulationBegins, eventbus.SimulationBeginsPayload{RunID: runID})
}

// handleSimulationEnds reacts to the adapter's own unprompted signal that
// the backend has shut down (spec.md §6 exit condition (a)): is_running
// drops immediately, without waiting for a caller to Close.
func (c *Controller) handleSimulationEnds(evt simadapter.Event) {
	ctx := context.Background()

	c.mu.Lock()
	c.isRunning = false
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "simulation ended by adapter")
	c.publish(ctx, eventbus.KindSimulationEnds, nil)
}

func (c *Controller) handleJobSubmitted(evt simadapter.Event) {
	ctx := context.Background()
	p := evt.Payload.(simadapter.JobSubmittedPayload)

	c.mu.Lock()
	nb := c.platform.NbResources()
	c.mu.Unlock()

	if p.Res > nb {
		if err := c.adapter.RejectJob(ctx, p.JobID); err != nil {
			c.logger.ErrorContext(ctx, "failed to reject oversize job", "job_id", p.JobID, "error", err)
		}
		c.metrics.jobsRejected.Add(ctx, 1)
		c.publish(ctx, eventbus.KindJobRejected, jobPayload(p.JobID, nil))
		return
	}

	// A zero walltime means the submission declared none.
	walltime := p.Walltime
	if walltime <= 0 {
		walltime = job.InfiniteWalltime
	}
	j := job.New(p.JobID, p.Res, walltime, evt.Timestamp)

	c.mu.Lock()
	c.jobsByID[j.ID] = j
	c.queue = append(c.queue, j)
	c.mu.Unlock()

	c.metrics.jobsSubmitted.Add(ctx, 1)
	c.publish(ctx, eventbus.KindJobSubmitted, jobPayload(j.ID, nil))
}

func (c *Controller) handleJobCompleted(evt simadapter.Event) {
	ctx := context.Background()
	p := evt.Payload.(simadapter.JobCompletedPayload)
	c.finishJob(ctx, p.JobID, finalStateToJobState(p.FinalState), eventbus.KindJobCompleted)
	c.startReadyJobs(ctx)
}

func (c *Controller) handleJobKilled(evt simadapter.Event) {
	ctx := context.Background()
	p := evt.Payload.(simadapter.JobKilledPayload)
	// The authoritative set is the full JobIDs list (resolved Open
	// Question): every listed job is terminated, not a single id.
	for _, id := range p.JobIDs {
		c.finishJob(ctx, id, job.StateCompletedKilled, eventbus.KindJobKilled)
	}
	c.startReadyJobs(ctx)
}

// finishJob moves a job out of running into completed, releasing its
// allocated resources on the agenda and their hosts.
func (c *Controller) finishJob(ctx context.Context, jobID string, final job.State, kind eventbus.Kind) {
	c.mu.Lock()
	j, ok := c.jobsByID[jobID]
	if !ok {
		c.mu.Unlock()
		if c.config.strictInvariants {
			c.logger.ErrorContext(ctx, "FATAL: completion of unknown job id", "job_id", jobID)
			panic("rjms: completion of unknown job id " + jobID)
		} else {
			c.logger.WarnContext(ctx, "completion reported for unknown job id, ignoring", "job_id", jobID)
		}
		return
	}

	j.SetState(final)
	j.SetStopTime(c.currentTime)
	c.running = removeJob(c.running, jobID)
	c.completed = append(c.completed, j)

	releasedHosts := make(map[int]*struct{})
	for _, rid := range j.Allocation {
		r, err := c.platform.GetResource(rid)
		if err != nil {
			continue
		}
		releasedHosts[r.HostID] = nil
	}
	c.agenda.Release(j.Allocation...)

	var hostIDs []int
	for hostID := range releasedHosts {
		h, err := c.platform.GetHost(hostID)
		if err != nil {
			continue
		}
		for _, rid := range j.Allocation {
			r, rerr := c.platform.GetResource(rid)
			if rerr == nil && r.HostID == hostID {
				_ = h.Release(ctx, rid)
			}
		}
		hostIDs = append(hostIDs, hostID)
	}
	c.mu.Unlock()

	c.metrics.jobsCompleted.Add(ctx, 1)
	c.publish(ctx, kind, jobPayload(jobID, nil))
	for _, hostID := range hostIDs {
		c.publish(ctx, eventbus.KindHostStateChanged, hostPayload(hostID))
	}
}

func (c *Controller) handleRequestedCall(evt simadapter.Event) {
	ctx := context.Background()
	p := evt.Payload.(simadapter.RequestedCallPayload)

	c.mu.Lock()
	bound := c.config.simulationTimeBound
	running := c.isRunning
	c.mu.Unlock()

	if bound > 0 && p.At >= bound {
		if running {
			if err := c.adapter.Finish(ctx); err != nil {
				c.logger.WarnContext(ctx, "forced finish failed", "error", err)
			}
		}
		_ = c.maybeDrain(ctx)
		c.mu.Lock()
		c.isRunning = false
		c.mu.Unlock()
	}
}

func (c *Controller) handleNotify(evt simadapter.Event) {
	ctx := context.Background()
	p := evt.Payload.(simadapter.NotifyPayload)

	switch p.Kind {
	case simadapter.NotifyNoMoreStaticJobToSubmit, simadapter.NotifyRegistrationFinished:
		c.mu.Lock()
		c.submitterEnded = true
		c.mu.Unlock()
	case simadapter.NotifyNoMoreExternalEventToOccur:
		_ = c.Close(ctx)
	}
}

func (c *Controller) handleResourcePowerStateChanged(evt simadapter.Event) {
	ctx := context.Background()
	p := evt.Payload.(simadapter.ResourceStateChangedPayload)

	hostIDs := make(map[int]*struct{})
	c.mu.Lock()
	for _, rid := range p.ResourceIDs {
		r, err := c.platform.GetResource(rid)
		if err != nil {
			continue
		}
		hostIDs[r.HostID] = nil
	}
	c.mu.Unlock()

	for hostID := range hostIDs {
		c.mu.Lock()
		h, err := c.platform.GetHost(hostID)
		c.mu.Unlock()
		if err != nil {
			continue
		}

		change, err := h.SetPState(ctx, p.PStateID)
		if err != nil {
			c.logger.WarnContext(ctx, "resource power state change rejected", "host_id", hostID, "error", err)
			continue
		}

		if change == platform.LifecycleStateChanged {
			c.publish(ctx, eventbus.KindHostStateChanged, hostPayload(hostID))
		} else {
			c.publish(ctx, eventbus.KindHostComputationPStateChange, hostPayload(hostID))
		}
	}

	c.startReadyJobs(ctx)
}

func finalStateToJobState(s string) job.State {
	switch s {
	case "completed-killed":
		return job.StateCompletedKilled
	case "completed-walltime":
		return job.StateCompletedWalltime
	default:
		return job.StateCompletedOK
	}
}
