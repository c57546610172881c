// SPDX-License-Identifier: BSD-3-Clause

package controller

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/batsim-go/rjms/internal/eventbus"
	"github.com/batsim-go/rjms/internal/job"
	"github.com/batsim-go/rjms/internal/platform"
)

// hostStateRank orders host power states by how cheap it is to put a job
// on them right now: already computing beats idle beats switching-on
// beats switching-off beats sleeping, since each step further from
// "already drawing compute power" adds wake-up latency before a job can
// actually start.
func hostStateRank(state string) int {
	switch state {
	case platform.HostStateComputing:
		return 0
	case platform.HostStateIdle:
		return 1
	case platform.HostStateSwitchingOn:
		return 2
	case platform.HostStateSwitchingOff:
		return 3
	case platform.HostStateSleeping:
		return 4
	default:
		return 5
	}
}

// Allocate binds resourceIDs to jobID, or -- if resourceIDs is omitted --
// greedily picks job.Res free resources ordered by host readiness, and
// moves the job from queue to ready. It always attempts to start the job
// immediately afterward via startReadyJobs.
func (c *Controller) Allocate(ctx context.Context, jobID string, resourceIDs []int) error {
	ctx, span := c.tracer.Start(ctx, "controller.allocate")
	defer span.End()

	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		err := ErrNotRunning
		span.RecordError(err)
		return err
	}
	j, err := c.findJobLocked(jobID)
	if err != nil {
		c.mu.Unlock()
		span.RecordError(err)
		return err
	}
	if j.Allocation != nil {
		c.mu.Unlock()
		err := fmt.Errorf("%w: job %s is already allocated", ErrInvalidArgument, jobID)
		span.RecordError(err)
		return err
	}

	chosen := resourceIDs
	if len(chosen) == 0 {
		chosen, err = c.pickResourcesLocked(ctx, j.Res)
		if err != nil {
			c.mu.Unlock()
			span.RecordError(err)
			return err
		}
	}
	if len(chosen) != j.Res {
		c.mu.Unlock()
		err := fmt.Errorf("%w: job %s needs %d resources, got %d", ErrInsufficientResources, jobID, j.Res, len(chosen))
		span.RecordError(err)
		return err
	}
	for _, rid := range chosen {
		if _, rerr := c.platform.GetResource(rid); rerr != nil {
			c.mu.Unlock()
			span.RecordError(rerr)
			return rerr
		}
	}

	j.SetAllocation(chosen)
	if err := c.agenda.Reserve(j); err != nil {
		j.Allocation = nil
		c.mu.Unlock()
		span.RecordError(err)
		return err
	}
	j.SetState(job.StateRunnable)
	c.queue = removeJob(c.queue, jobID)
	c.ready = append(c.ready, j)
	allocation := append([]int(nil), chosen...)
	c.mu.Unlock()

	c.publish(ctx, eventbus.KindJobAllocated, jobPayload(jobID, allocation))
	c.startReadyJobs(ctx)
	return nil
}

// pickResourcesLocked greedily selects n free resources, preferring hosts
// that are already computing or idle over ones that would need a wake-up.
// c.mu must be held.
func (c *Controller) pickResourcesLocked(ctx context.Context, n int) ([]int, error) {
	free := c.agenda.AvailableResources()
	if len(free) < n {
		return nil, fmt.Errorf("%w: need %d, have %d free", ErrInsufficientResources, n, len(free))
	}

	type candidate struct {
		resourceID int
		rank       int
	}
	candidates := make([]candidate, 0, len(free))
	for _, rid := range free {
		r, err := c.platform.GetResource(rid)
		if err != nil {
			continue
		}
		h, err := c.platform.GetHost(r.HostID)
		if err != nil {
			continue
		}
		rank := hostStateRank(h.State(ctx))
		if c.config.strictWakeupFreeAllocation && rank > hostStateRank(platform.HostStateIdle) {
			continue
		}
		candidates = append(candidates, candidate{resourceID: rid, rank: rank})
	}
	if len(candidates) < n {
		return nil, fmt.Errorf("%w: need %d wake-up-free resources, have %d", ErrInsufficientResources, n, len(candidates))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rank != candidates[j].rank {
			return candidates[i].rank < candidates[j].rank
		}
		return candidates[i].resourceID < candidates[j].resourceID
	})

	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].resourceID
	}
	sort.Ints(out)
	return out, nil
}

// KillJob requests the simulator terminate jobID immediately. The
// controller does not pre-terminate the job locally; its cohort moves to
// completed only once the simulator reports JOB_KILLED.
func (c *Controller) KillJob(ctx context.Context, jobID string) error {
	ctx, span := c.tracer.Start(ctx, "controller.kill_job")
	defer span.End()

	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		err := ErrNotRunning
		span.RecordError(err)
		return err
	}
	if _, err := c.findJobLocked(jobID); err != nil {
		c.mu.Unlock()
		span.RecordError(err)
		return err
	}
	c.mu.Unlock()

	if err := c.adapter.KillJobs(ctx, []string{jobID}); err != nil {
		err = fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
		span.RecordError(err)
		return err
	}
	return nil
}

// RejectJob removes jobID from queue without ever allocating it.
func (c *Controller) RejectJob(ctx context.Context, jobID string) error {
	ctx, span := c.tracer.Start(ctx, "controller.reject_job")
	defer span.End()

	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		err := ErrNotRunning
		span.RecordError(err)
		return err
	}
	if _, err := c.findJobLocked(jobID); err != nil {
		c.mu.Unlock()
		span.RecordError(err)
		return err
	}
	c.queue = removeJob(c.queue, jobID)
	c.mu.Unlock()

	c.publish(ctx, eventbus.KindJobRejected, jobPayload(jobID, nil))

	if err := c.adapter.RejectJob(ctx, jobID); err != nil {
		err = fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
		span.RecordError(err)
		return err
	}
	return nil
}

// SwitchOn issues a wake_up for each host in hostIDs, grouping the resulting
// pstate requests per target pstate. A listed host that is not sleeping
// fails the call with the platform's ErrInvalidState.
func (c *Controller) SwitchOn(ctx context.Context, hostIDs []int) error {
	return c.switchHosts(ctx, hostIDs, "controller.switch_on", func(h *platform.Host) (int, error) {
		return h.WakeUp(ctx)
	})
}

// SwitchOff issues a sleep for each host in hostIDs.
func (c *Controller) SwitchOff(ctx context.Context, hostIDs []int) error {
	return c.switchHosts(ctx, hostIDs, "controller.switch_off", func(h *platform.Host) (int, error) {
		return h.Sleep(ctx)
	})
}

func (c *Controller) switchHosts(ctx context.Context, hostIDs []int, spanName string, fire func(*platform.Host) (int, error)) error {
	ctx, span := c.tracer.Start(ctx, spanName)
	defer span.End()

	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		err := ErrNotRunning
		span.RecordError(err)
		return err
	}

	byPState := make(map[int][]int) // pstate id -> resource ids
	var changedHosts []int
	for _, hostID := range hostIDs {
		h, err := c.platform.GetHost(hostID)
		if err != nil {
			c.mu.Unlock()
			span.RecordError(err)
			return err
		}
		fireStart := time.Now()
		pstateID, err := fire(h)
		c.metrics.hostTransitionDuration.Record(ctx, time.Since(fireStart).Seconds())
		if err != nil {
			c.mu.Unlock()
			span.RecordError(err)
			return err
		}
		byPState[pstateID] = append(byPState[pstateID], h.ResourceIDs()...)
		changedHosts = append(changedHosts, hostID)
	}
	c.mu.Unlock()

	for pstateID, resourceIDs := range byPState {
		if err := c.adapter.SetResourcesPState(ctx, resourceIDs, pstateID); err != nil {
			err = fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
			span.RecordError(err)
			return err
		}
	}
	for _, hostID := range changedHosts {
		c.publish(ctx, eventbus.KindHostStateChanged, hostPayload(hostID))
	}
	return nil
}

// SwitchPowerState applies a simulator-confirmed pstate change to hostID.
// It is the same entry point the RESOURCE_STATE_CHANGED handler uses
// internally, exposed for callers driving pstate changes directly (e.g. a
// policy reacting to an out-of-band simulator notification).
func (c *Controller) SwitchPowerState(ctx context.Context, hostID int, pstateID int) error {
	ctx, span := c.tracer.Start(ctx, "controller.switch_power_state")
	defer span.End()

	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		err := ErrNotRunning
		span.RecordError(err)
		return err
	}
	h, err := c.platform.GetHost(hostID)
	if err != nil {
		c.mu.Unlock()
		span.RecordError(err)
		return err
	}
	change, err := h.SetPState(ctx, pstateID)
	c.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		return err
	}

	if change == platform.LifecycleStateChanged {
		c.publish(ctx, eventbus.KindHostStateChanged, hostPayload(hostID))
	} else {
		c.publish(ctx, eventbus.KindHostComputationPStateChange, hostPayload(hostID))
	}
	c.startReadyJobs(ctx)
	return nil
}
