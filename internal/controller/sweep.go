// SPDX-License-Identifier: BSD-3-Clause

package controller

import (
	"context"
	"sort"

	"github.com/batsim-go/rjms/internal/eventbus"
	"github.com/batsim-go/rjms/internal/job"
	"github.com/batsim-go/rjms/internal/platform"
)

// startReadyJobs implements the start_ready_jobs sweep: for each job
// currently waiting in ready, check whether every host parenting its
// allocation is ready (idle or computing). Sleeping hosts are woken;
// switching hosts are left alone; once every host is ready the job is
// started. The sweep iterates over a snapshot of ready so that a wake_up
// issued mid-sweep, or a job started mid-sweep, cannot perturb iteration
// or double-fire a wake-up for a host shared by two jobs in the same pass.
func (c *Controller) startReadyJobs(ctx context.Context) {
	c.mu.Lock()
	snapshot := append([]*job.Job(nil), c.ready...)
	c.mu.Unlock()

	wokenHosts := make(map[int]bool)

	for _, j := range snapshot {
		c.mu.Lock()
		hostIDs, err := c.hostsOfLocked(j)
		if err != nil {
			c.mu.Unlock()
			c.logger.WarnContext(ctx, "ready job references unknown resource", "job_id", j.ID, "error", err)
			continue
		}

		allReady := true
		for _, hostID := range hostIDs {
			h, herr := c.platform.GetHost(hostID)
			if herr != nil {
				allReady = false
				continue
			}
			switch h.State(ctx) {
			case platform.HostStateIdle, platform.HostStateComputing:
				// ready
			case platform.HostStateSleeping:
				allReady = false
				if !wokenHosts[hostID] {
					wokenHosts[hostID] = true
					if pstateID, werr := h.WakeUp(ctx); werr == nil {
						c.mu.Unlock()
						c.requestPState(ctx, []int{hostID}, pstateID)
						c.mu.Lock()
					}
				}
			default:
				// switching-on or switching-off: wait without requesting anything.
				allReady = false
			}
		}

		if !allReady {
			c.mu.Unlock()
			continue
		}

		for _, hostID := range hostIDs {
			h, herr := c.platform.GetHost(hostID)
			if herr != nil {
				continue
			}
			if h.State(ctx) == platform.HostStateIdle {
				if err := h.StartComputing(ctx); err != nil {
					c.logger.WarnContext(ctx, "start_computing failed during sweep", "host_id", hostID, "error", err)
				}
			}
		}
		for _, rid := range j.Allocation {
			r, rerr := c.platform.GetResource(rid)
			if rerr != nil {
				continue
			}
			h, herr := c.platform.GetHost(r.HostID)
			if herr != nil {
				continue
			}
			h.Hold(rid, j.ID)
		}

		j.SetStartTime(c.currentTime)
		j.SetState(job.StateRunning)
		c.ready = removeJob(c.ready, j.ID)
		c.running = append(c.running, j)
		allocation := append([]int(nil), j.Allocation...)
		c.mu.Unlock()

		if err := c.adapter.ExecuteJob(ctx, j.ID, allocation); err != nil {
			c.logger.ErrorContext(ctx, "execute_job failed", "job_id", j.ID, "error", err)
		}
		c.publish(ctx, eventbus.KindJobStarted, jobPayload(j.ID, allocation))
	}
}

// hostsOfLocked returns the sorted, deduplicated set of host ids parenting
// j's allocated resources. c.mu must be held.
func (c *Controller) hostsOfLocked(j *job.Job) ([]int, error) {
	seen := make(map[int]bool)
	var out []int
	for _, rid := range j.Allocation {
		r, err := c.platform.GetResource(rid)
		if err != nil {
			return nil, err
		}
		if !seen[r.HostID] {
			seen[r.HostID] = true
			out = append(out, r.HostID)
		}
	}
	sort.Ints(out)
	return out, nil
}

// requestPState issues a single set_resources_pstate request
// covering every resource on the named hosts, grouped under pstateID. It
// must be called with c.mu NOT held (it calls out to the adapter).
func (c *Controller) requestPState(ctx context.Context, hostIDs []int, pstateID int) {
	c.mu.Lock()
	var resourceIDs []int
	for _, hostID := range hostIDs {
		h, err := c.platform.GetHost(hostID)
		if err != nil {
			continue
		}
		resourceIDs = append(resourceIDs, h.ResourceIDs()...)
	}
	c.mu.Unlock()

	if len(resourceIDs) == 0 {
		return
	}
	if err := c.adapter.SetResourcesPState(ctx, resourceIDs, pstateID); err != nil {
		c.logger.WarnContext(ctx, "set_resources_pstate failed", "pstate_id", pstateID, "error", err)
	}
}
