// SPDX-License-Identifier: BSD-3-Clause

package controller

import (
	"context"

	"github.com/batsim-go/rjms/internal/eventbus"
)

// Subscribe registers fn to run, in registration order, for every domain
// event of kind. It is a thin pass-through to the event bus; Controller
// exists so callers need not import internal/eventbus themselves to reach
// the domain-event surface spec.md §6 describes.
func (c *Controller) Subscribe(kind eventbus.Kind, fn eventbus.Handler) {
	if c.bus == nil {
		return
	}
	c.bus.Subscribe(kind, fn)
}

// publish dispatches a domain event through the bus, if one is attached.
// A Controller built without a bus (e.g. a unit test exercising only job
// and host state transitions) simply drops domain events; its cohort and
// platform state are unaffected either way, since dispatch is observation
// only per the data model's ownership rule.
func (c *Controller) publish(ctx context.Context, kind eventbus.Kind, payload any) {
	if c.bus == nil {
		return
	}

	c.mu.Lock()
	ts := c.currentTime
	c.mu.Unlock()

	if err := c.bus.Publish(ctx, eventbus.Event{Kind: kind, Timestamp: ts, Payload: payload}); err != nil {
		c.logger.WarnContext(ctx, "failed to publish domain event", "kind", kind, "error", err)
	}
}

func jobPayload(jobID string, allocation []int) eventbus.JobPayload {
	return eventbus.JobPayload{JobID: jobID, Allocation: allocation}
}

func hostPayload(hostID int) eventbus.HostStatePayload {
	return eventbus.HostStatePayload{HostID: hostID}
}
