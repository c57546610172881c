// SPDX-License-Identifier: BSD-3-Clause

package fsm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qmuntal/stateless"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Machine is a thread-safe finite state machine built on qmuntal/stateless.
// In this module it backs the host power-state lifecycle in the platform
// model; job state and agenda reservations do not use it.
type Machine struct {
	config  *Config
	machine *stateless.StateMachine
	mu      sync.RWMutex
	tracer  trace.Tracer

	current     string
	definitions map[string]StateDef
}

// New builds a Machine from config, which must pass Validate.
func New(config *Config) (*Machine, error) {
	if config == nil {
		return nil, ErrInvalidConfig
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		config:      config,
		current:     config.InitialState,
		definitions: make(map[string]StateDef, len(config.States)),
		tracer:      otel.Tracer("fsm"),
	}

	m.machine = stateless.NewStateMachine(config.InitialState)

	for _, s := range config.States {
		m.definitions[s.Name] = s
		m.configureState(s)
	}
	for _, t := range config.Transitions {
		m.configureTransition(t)
	}

	return m, nil
}

// Name returns the machine's configured name.
func (m *Machine) Name() string {
	return m.config.Name
}

// State returns the machine's current state. The underlying stateless
// machine never fails to report its own state once constructed, so this
// returns the state directly rather than forcing every call site to check
// an error that can't occur in practice.
func (m *Machine) State(ctx context.Context) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, err := m.machine.State(ctx)
	if err != nil {
		return m.current
	}
	return fmt.Sprintf("%v", state)
}

// Fire attempts to apply trigger to the machine. It blocks until the
// transition commits, the configured state timeout elapses, or ctx is
// canceled, whichever happens first.
func (m *Machine) Fire(ctx context.Context, trigger string) error {
	m.mu.Lock()

	var span trace.Span
	ctx, span = m.tracer.Start(ctx, "fsm.Fire",
		trace.WithAttributes(
			attribute.String("fsm.name", m.config.Name),
			attribute.String("fsm.state.current", m.current),
			attribute.String("fsm.trigger", trigger),
		))
	defer span.End()

	if ok, err := m.machine.CanFire(trigger); err != nil {
		m.mu.Unlock()
		span.RecordError(err)
		return fmt.Errorf("%w: trigger %s not valid in state %s: %w", ErrInvalidTrigger, trigger, m.current, err)
	} else if !ok {
		m.mu.Unlock()
		err := fmt.Errorf("%w: trigger %s not valid in state %s", ErrInvalidTrigger, trigger, m.current)
		span.RecordError(err)
		return err
	}

	previous := m.current

	timeout := m.config.StateTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	fireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		if err := m.machine.FireCtx(fireCtx, trigger); err != nil {
			done <- fmt.Errorf("%w: %w", ErrInvalidTransition, err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			m.mu.Unlock()
			span.RecordError(err)
			return err
		}
	case <-fireCtx.Done():
		m.mu.Unlock()
		if fireCtx.Err() == context.DeadlineExceeded {
			span.RecordError(ErrTransitionTimeout)
			return ErrTransitionTimeout
		}
		return fireCtx.Err()
	}

	state, err := m.machine.State(ctx)
	if err != nil {
		m.mu.Unlock()
		span.RecordError(err)
		return fmt.Errorf("failed to read committed state: %w", err)
	}
	m.current = fmt.Sprintf("%v", state)

	name := m.config.Name
	current := m.current
	persist := m.config.PersistenceCallback
	broadcast := m.config.BroadcastCallback
	m.mu.Unlock()

	if persist != nil {
		if err := persist(ctx, name, current); err != nil {
			span.RecordError(err)
			return fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
		}
	}
	if broadcast != nil {
		if err := broadcast(ctx, name, previous, current, trigger); err != nil {
			span.RecordError(err)
		}
	}

	span.SetAttributes(
		attribute.String("fsm.state.previous", previous),
		attribute.String("fsm.state.new", current),
	)

	return nil
}

// CanFire reports whether trigger is valid from the current state.
func (m *Machine) CanFire(trigger string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.machine.CanFire(trigger)
}

// PermittedTriggers returns the triggers valid from the current state.
func (m *Machine) PermittedTriggers(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	triggers, err := m.machine.PermittedTriggers(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]string, len(triggers))
	for i, t := range triggers {
		result[i] = fmt.Sprintf("%v", t)
	}
	return result, nil
}

// IsInState reports whether the machine is currently in state.
func (m *Machine) IsInState(state string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current == state
}

// ToGraph returns a DOT graph representation of the machine, useful for
// documenting a host's or job's lifecycle.
func (m *Machine) ToGraph() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.machine.ToGraph()
}

func (m *Machine) configureState(s StateDef) {
	cfg := m.machine.Configure(s.Name)

	if s.OnEntry != nil {
		cfg.OnEntry(func(ctx context.Context, _ ...any) error {
			return s.OnEntry(ctx)
		})
	}
	if s.OnExit != nil {
		cfg.OnExit(func(ctx context.Context, _ ...any) error {
			return s.OnExit(ctx)
		})
	}
}

func (m *Machine) configureTransition(t TransitionDef) {
	fromCfg := m.machine.Configure(t.From)

	if t.Guard != nil {
		fromCfg.PermitDynamic(t.Trigger, func(ctx context.Context, _ ...any) (any, error) {
			if t.Guard(ctx) {
				return t.To, nil
			}
			return nil, fmt.Errorf("%w: guard rejected trigger %s", ErrInvalidTransition, t.Trigger)
		})
	} else {
		fromCfg.Permit(t.Trigger, t.To)
	}

	if t.Action != nil {
		toCfg := m.machine.Configure(t.To)
		toCfg.OnEntryFrom(t.Trigger, func(ctx context.Context, _ ...any) error {
			return t.Action(ctx, t.From, t.To)
		})
	}
}
