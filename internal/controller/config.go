// SPDX-License-Identifier: BSD-3-Clause

package controller

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/batsim-go/rjms/pkg/rjmslog"
)

// Config holds Controller construction options, built through the
// functional-options pattern rather than a struct literal, following the
// teacher's service configuration style.
type Config struct {
	logger *slog.Logger

	// simulationTimeBound, if non-zero, forces a clean shutdown once
	// current_time reaches it, regardless of cohort state.
	simulationTimeBound time.Duration

	// listenEventBus records whether the embedder wants the event bus
	// transport to accept real TCP connections. Off by default, matching the
	// teacher's IPC service default of dontListen: true. The controller does
	// not create a transport and does not read this value; listening is set
	// on the transport itself with transport.WithListen.
	listenEventBus bool

	// strictWakeupFreeAllocation excludes any non-computable host
	// (switching-on, switching-off, sleeping) from greedy allocation
	// candidates when set, trading allocation flexibility for avoiding
	// wake-up latency entirely.
	strictWakeupFreeAllocation bool

	// stateTransitionTimeout is checked by Validate to be positive. It is
	// not passed to the platform: host power-state machines use the fsm
	// package's default state timeout of 30 seconds.
	stateTransitionTimeout time.Duration

	// strictInvariants turns structural invariant violations detected by
	// internal handlers (e.g. completion of an unknown job id) into a
	// FATAL log entry followed by a panic instead of a logged-and-continued
	// warning. A library
	// has no business crashing its host process by default, so this stays
	// off unless the embedder opts in for debug builds.
	strictInvariants bool
}

// Option configures a Controller.
type Option func(*Config)

// WithLogger overrides the controller's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.logger = l }
}

// WithSimulationTimeBound forces the controller to shut down once
// current_time reaches bound, regardless of outstanding jobs.
func WithSimulationTimeBound(bound time.Duration) Option {
	return func(c *Config) { c.simulationTimeBound = bound }
}

// WithEventBusListen records whether the event bus transport should accept
// real TCP connections. The controller stores the value but does not act on
// it; a transport's listening is set with transport.WithListen.
func WithEventBusListen(listen bool) Option {
	return func(c *Config) { c.listenEventBus = listen }
}

// WithStrictWakeupFreeAllocation excludes hosts that are not already
// computable (computing or idle) from greedy allocation candidates.
func WithStrictWakeupFreeAllocation(strict bool) Option {
	return func(c *Config) { c.strictWakeupFreeAllocation = strict }
}

// WithStateTransitionTimeout sets the host power-state transition timeout
// that Validate requires to be positive. The value is not passed to the
// host state machines, which keep the fsm package's 30-second default.
func WithStateTransitionTimeout(d time.Duration) Option {
	return func(c *Config) { c.stateTransitionTimeout = d }
}

// WithStrictInvariants makes structural invariant violations fatal (a
// FATAL log entry followed by a panic) instead of logged-and-continued.
func WithStrictInvariants(strict bool) Option {
	return func(c *Config) { c.strictInvariants = strict }
}

func defaultConfig() *Config {
	return &Config{
		logger:                 rjmslog.GetGlobalLogger().With("component", "rjms-controller"),
		listenEventBus:         false,
		stateTransitionTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.stateTransitionTimeout <= 0 {
		return fmt.Errorf("%w: state transition timeout must be positive", ErrInvalidArgument)
	}
	if c.simulationTimeBound < 0 {
		return fmt.Errorf("%w: simulation time bound must not be negative", ErrInvalidArgument)
	}
	return nil
}
