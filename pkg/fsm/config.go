// SPDX-License-Identifier: BSD-3-Clause

package fsm

import (
	"context"
	"fmt"
	"time"
)

// StateDef declares one state of a machine and the hooks run on entry/exit.
type StateDef struct {
	Name    string
	OnEntry func(ctx context.Context) error
	OnExit  func(ctx context.Context) error
}

// TransitionDef declares one allowed transition. Guard, if set, must return
// true for the transition to be permitted; Action, if set, runs after the
// underlying stateless.StateMachine has committed the transition.
type TransitionDef struct {
	From    string
	To      string
	Trigger string
	Guard   func(ctx context.Context) bool
	Action  func(ctx context.Context, from, to string) error
}

// PersistenceCallback is invoked after every committed transition so the
// caller can durably record the new state.
type PersistenceCallback func(ctx context.Context, machineName, state string) error

// BroadcastCallback is invoked after every committed transition so the
// caller can publish the change onto the event bus.
type BroadcastCallback func(ctx context.Context, machineName, previousState, currentState, trigger string) error

// Config describes a machine to be built by New.
type Config struct {
	Name                string
	Description         string
	InitialState        string
	States              []StateDef
	Transitions         []TransitionDef
	StateTimeout        time.Duration
	PersistenceCallback PersistenceCallback
	BroadcastCallback   BroadcastCallback
}

// Option configures a Config.
type Option func(*Config)

// WithName sets the machine's name, used in traces and the Manager registry.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithDescription attaches a human-readable description to the machine.
func WithDescription(description string) Option {
	return func(c *Config) { c.Description = description }
}

// WithInitialState sets the state the machine starts in.
func WithInitialState(state string) Option {
	return func(c *Config) { c.InitialState = state }
}

// WithStates declares the machine's complete set of states.
func WithStates(states ...StateDef) Option {
	return func(c *Config) { c.States = append(c.States, states...) }
}

// WithTransition adds an unguarded, unconditional transition.
func WithTransition(from, to, trigger string) Option {
	return func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDef{From: from, To: to, Trigger: trigger})
	}
}

// WithGuardedTransition adds a transition that only fires when guard returns true.
func WithGuardedTransition(from, to, trigger string, guard func(ctx context.Context) bool) Option {
	return func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDef{From: from, To: to, Trigger: trigger, Guard: guard})
	}
}

// WithActionTransition adds a transition that runs action once committed.
func WithActionTransition(from, to, trigger string, action func(ctx context.Context, from, to string) error) Option {
	return func(c *Config) {
		c.Transitions = append(c.Transitions, TransitionDef{From: from, To: to, Trigger: trigger, Action: action})
	}
}

// WithStateTimeout bounds how long a single Fire call may take before it is
// considered to have failed.
func WithStateTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.StateTimeout = timeout }
}

// WithPersistence sets the callback invoked after each committed transition.
func WithPersistence(callback PersistenceCallback) Option {
	return func(c *Config) { c.PersistenceCallback = callback }
}

// WithBroadcast sets the callback invoked after each committed transition.
func WithBroadcast(callback BroadcastCallback) Option {
	return func(c *Config) { c.BroadcastCallback = callback }
}

// NewConfig builds a Config from options, applied over these defaults:
// a 30 second state timeout and no persistence/broadcast callbacks.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		StateTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks the configuration for internal consistency before a
// Machine is built from it.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidConfig)
	}
	if c.InitialState == "" {
		return fmt.Errorf("%w: initial state cannot be empty", ErrInvalidConfig)
	}
	if len(c.States) == 0 {
		return fmt.Errorf("%w: at least one state must be defined", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.States))
	initialFound := false
	for _, s := range c.States {
		if s.Name == "" {
			return fmt.Errorf("%w: state name cannot be empty", ErrInvalidConfig)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate state name: %s", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
		if s.Name == c.InitialState {
			initialFound = true
		}
	}
	if !initialFound {
		return fmt.Errorf("%w: initial state %s not found in states list", ErrInvalidConfig, c.InitialState)
	}

	for _, t := range c.Transitions {
		if t.From == "" || t.To == "" {
			return fmt.Errorf("%w: transition from/to cannot be empty", ErrInvalidConfig)
		}
		if t.Trigger == "" {
			return fmt.Errorf("%w: transition trigger cannot be empty", ErrInvalidConfig)
		}
		if !seen[t.From] {
			return fmt.Errorf("%w: transition from state %s not declared", ErrInvalidConfig, t.From)
		}
		if !seen[t.To] {
			return fmt.Errorf("%w: transition to state %s not declared", ErrInvalidConfig, t.To)
		}
	}

	if c.StateTimeout <= 0 {
		return fmt.Errorf("%w: state timeout must be positive", ErrInvalidConfig)
	}

	return nil
}
