// SPDX-License-Identifier: BSD-3-Clause

package controller

import (
	"context"
	"errors"
	"time"

	"github.com/batsim-go/rjms/internal/supervisor"
)

// driveLoop is a supervisor.Component wrapping a Controller's ProceedTime
// loop, so an embedder can run a controller under a supervisor.Supervisor
// alongside the event bus transport and an out-of-process adapter's
// connection goroutine, instead of driving ProceedTime from its own
// hand-rolled goroutine.
type driveLoop struct {
	c *Controller
}

// AsComponent wraps c's drive loop as a supervisor.Component. Run waits for
// a simulation to start, then blocks calling ProceedTime(ctx, 0) for as long
// as it is in progress,
// and returns nil once the controller stops running (Close, a time-bound
// drain, or an adapter-delivered SIMULATION_ENDS) rather than treating the
// end of a simulation as a component failure worth restarting.
func (c *Controller) AsComponent() supervisor.Component {
	return &driveLoop{c: c}
}

// Name implements supervisor.Component.
func (d *driveLoop) Name() string {
	return "controller-drive-loop"
}

// Run implements supervisor.Component.
func (d *driveLoop) Run(ctx context.Context) error {
	started := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !d.c.IsRunning() {
			if started {
				return nil
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		started = true

		if err := d.c.ProceedTime(ctx, 0); err != nil {
			if errors.Is(err, ErrNotRunning) {
				return nil
			}
			return err
		}
	}
}
