// SPDX-License-Identifier: BSD-3-Clause

// Package controller implements the RJMS event-loop driver: it owns the
// pipeline queue -> ready -> running -> completed, translates simulator
// events into job/host/agenda state, and issues host power transitions
// and protocol requests back through a simadapter.Adapter. It is the
// controller the rest of this module exists to support.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/batsim-go/rjms/internal/agenda"
	"github.com/batsim-go/rjms/internal/eventbus"
	"github.com/batsim-go/rjms/internal/job"
	"github.com/batsim-go/rjms/internal/platform"
	"github.com/batsim-go/rjms/internal/simadapter"
	"github.com/batsim-go/rjms/pkg/rjmsid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Controller is the RJMS control core. It is not safe to share between
// goroutines that might call it concurrently; the single-threaded
// cooperative model described in the design guarantees every call
// originates from one logical thread of control, and the internal mutex
// exists to make that guarantee cheap to assert rather than to support
// genuine concurrent access.
type Controller struct {
	config *Config
	logger *slog.Logger
	tracer trace.Tracer
	metrics *metrics

	adapter simadapter.Adapter
	bus     *eventbus.Bus

	mu             sync.Mutex
	platform       *platform.Platform
	agenda         *agenda.Agenda
	queue          []*job.Job
	ready          []*job.Job
	running        []*job.Job
	completed      []*job.Job
	jobsByID       map[string]*job.Job
	currentTime    time.Duration
	isRunning      bool
	submitterEnded bool
	runID          string
}

// New builds a Controller around adapter, which must already be usable
// (Start has not yet been called on it). bus is the event bus domain
// events are dispatched through; it may be nil, in which case Subscribe
// and publish (see events.go) become no-ops, useful for embedding the
// controller's job/host/agenda logic without the domain-event surface.
func New(adapter simadapter.Adapter, bus *eventbus.Bus, opts ...Option) (*Controller, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	meter := otel.Meter("rjms-controller")
	m, err := newMetrics(meter)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		config:   cfg,
		logger:   cfg.logger,
		tracer:   otel.Tracer("rjms-controller"),
		metrics:  m,
		adapter:  adapter,
		bus:      bus,
		jobsByID: make(map[string]*job.Job),
	}

	adapter.SetCallback(simadapter.EventSimulationBegins, c.handleSimulationBegins)
	adapter.SetCallback(simadapter.EventSimulationEnds, c.handleSimulationEnds)
	adapter.SetCallback(simadapter.EventJobSubmitted, c.handleJobSubmitted)
	adapter.SetCallback(simadapter.EventJobCompleted, c.handleJobCompleted)
	adapter.SetCallback(simadapter.EventJobKilled, c.handleJobKilled)
	adapter.SetCallback(simadapter.EventRequestedCall, c.handleRequestedCall)
	adapter.SetCallback(simadapter.EventNotify, c.handleNotify)
	adapter.SetCallback(simadapter.EventResourceStateChanged, c.handleResourcePowerStateChanged)

	return c, nil
}

// IsRunning reports whether a simulation is currently in progress.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRunning
}

// CurrentTime returns the controller's view of simulation time, as of the
// last processed event batch.
func (c *Controller) CurrentTime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// ReservedTime reports, for each platform resource in ascending id order,
// how much longer its current reservation holds at simulation time now. It
// delegates to the agenda's reserved_time formula and is nil before
// SIMULATION_BEGINS has been processed.
func (c *Controller) ReservedTime(now time.Duration) []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.agenda == nil {
		return nil
	}
	return c.agenda.ReservedTime(now)
}

// Start begins a simulation against spec. It fails with ErrAlreadyRunning
// if a simulation is already in progress.
func (c *Controller) Start(ctx context.Context, spec simadapter.PlatformSpec) error {
	ctx, span := c.tracer.Start(ctx, "controller.start")
	defer span.End()

	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		err := ErrAlreadyRunning
		span.RecordError(err)
		return err
	}
	c.queue = nil
	c.ready = nil
	c.running = nil
	c.completed = nil
	c.jobsByID = make(map[string]*job.Job)
	c.submitterEnded = false
	c.currentTime = 0
	c.runID = rjmsid.New()
	runID := c.runID
	c.mu.Unlock()

	span.SetAttributes(attribute.String("rjms.run_id", runID))
	c.logger.InfoContext(ctx, "starting simulation", "run_id", runID)

	if _, err := c.adapter.Start(ctx, spec); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
	}

	c.mu.Lock()
	c.isRunning = true
	c.mu.Unlock()

	if c.config.simulationTimeBound > 0 {
		if err := c.adapter.CallMeLater(ctx, c.config.simulationTimeBound); err != nil {
			c.logger.WarnContext(ctx, "failed to schedule simulation time bound wake-up", "error", err)
		}
	}

	return nil
}

// Close ends the simulation if one is running; it is always safe to call
// and never fails, even if no simulation is in progress.
func (c *Controller) Close(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "controller.close")
	defer span.End()

	c.mu.Lock()
	running := c.isRunning
	c.mu.Unlock()

	if running {
		if err := c.adapter.Finish(ctx); err != nil {
			c.logger.WarnContext(ctx, "adapter finish failed during close", "error", err)
		}
	}

	c.mu.Lock()
	c.isRunning = false
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "simulation closed")

	return nil
}

// ProceedTime advances the simulation. If until is non-zero, it schedules
// a wake-up at until and loops proceed_simulation while running and
// current_time < until; otherwise it advances a single event batch.
func (c *Controller) ProceedTime(ctx context.Context, until time.Duration) error {
	ctx, span := c.tracer.Start(ctx, "controller.proceed_time")
	defer span.End()

	c.mu.Lock()
	running := c.isRunning
	now := c.currentTime
	c.mu.Unlock()

	if !running {
		err := ErrNotRunning
		span.RecordError(err)
		return err
	}
	if until < 0 || (until != 0 && until <= now) {
		err := fmt.Errorf("%w: until must be greater than current_time", ErrInvalidArgument)
		span.RecordError(err)
		return err
	}

	if until > 0 {
		if err := c.adapter.CallMeLater(ctx, until); err != nil {
			return fmt.Errorf("controller: failed to schedule proceed_time wake-up: %w", err)
		}
		for {
			c.mu.Lock()
			running = c.isRunning
			now = c.currentTime
			c.mu.Unlock()
			if !running || now >= until {
				break
			}
			if err := c.advanceOneBatch(ctx); err != nil {
				return err
			}
		}
	} else {
		if err := c.advanceOneBatch(ctx); err != nil {
			return err
		}
	}

	return c.maybeDrain(ctx)
}

// advanceOneBatch pulls and processes the next event batch. Processing
// itself happens inside the adapter's registered callbacks (see
// handlers.go); this only updates current_time bookkeeping from the
// batch's timestamps.
func (c *Controller) advanceOneBatch(ctx context.Context) error {
	batch, err := c.adapter.ProceedSimulation(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAdapterUnavailable, err)
	}
	for _, evt := range batch {
		c.mu.Lock()
		if evt.Timestamp > c.currentTime {
			c.currentTime = evt.Timestamp
		}
		c.mu.Unlock()
	}
	return nil
}

// maybeDrain runs the end-of-simulation drain if the submitter has
// announced it has nothing more to submit and every cohort but completed
// is empty.
func (c *Controller) maybeDrain(ctx context.Context) error {
	c.mu.Lock()
	done := c.submitterEnded && len(c.queue) == 0 && len(c.ready) == 0 && len(c.running) == 0
	running := c.isRunning
	c.mu.Unlock()

	if !done || !running {
		return nil
	}

	c.logger.InfoContext(ctx, "draining to end of simulation")
	for {
		c.mu.Lock()
		running = c.isRunning
		c.mu.Unlock()
		if !running || !c.adapter.Running() {
			break
		}
		if err := c.advanceOneBatch(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) findJobLocked(id string) (*job.Job, error) {
	j, ok := c.jobsByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j, nil
}

func removeJob(jobs []*job.Job, id string) []*job.Job {
	out := jobs[:0:0]
	for _, j := range jobs {
		if j.ID != id {
			out = append(out, j)
		}
	}
	return out
}
