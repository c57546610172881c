// SPDX-License-Identifier: BSD-3-Clause

package supervisor

import (
	"context"
	"fmt"

	"cirello.io/oversight/v2"
)

// Component is a long-running part of the RJMS process that the supervisor
// restarts on failure: the controller's drive loop, the event bus transport,
// or a socket adapter's connection goroutine.
type Component interface {
	// Name identifies the component in logs and restart accounting.
	Name() string
	// Run blocks until ctx is canceled or the component fails.
	Run(ctx context.Context) error
}

// asChildProcess wraps a Component as an oversight.ChildProcess, recovering
// from panics and attributing them to the component by name.
func asChildProcess(c Component) oversight.ChildProcess {
	return func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s panicked: %v", ErrComponentPanic, c.Name(), r)
			}
		}()

		return c.Run(ctx)
	}
}

// Stub is a no-op Component, useful in tests that need to fill a supervision
// tree slot without exercising real behavior.
type Stub struct {
	name string
}

// NewStub returns a Stub identified by name.
func NewStub(name string) *Stub {
	return &Stub{name: name}
}

// Name implements Component.
func (s *Stub) Name() string { return s.name }

// Run implements Component. It returns immediately when ctx is canceled.
func (s *Stub) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
