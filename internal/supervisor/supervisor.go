// SPDX-License-Identifier: BSD-3-Clause

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cirello.io/oversight/v2"
	"github.com/arunsworld/nursery"
	"github.com/batsim-go/rjms/pkg/rjmslog"
)

// Supervisor runs a fixed set of Components under an oversight tree, one for
// the event bus transport, one for the controller's drive loop, and
// optionally one per attached simulator adapter connection. Unlike a BMC's
// operator, which discovers services by reflection, a simulation run has a
// small, statically known set of components, so they are registered
// explicitly with Add.
type Supervisor struct {
	name       string
	timeout    time.Duration
	logger     *slog.Logger
	components []namedComponent
}

type namedComponent struct {
	name string
	c    Component
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithName sets the name reported in logs for this supervision tree.
func WithName(name string) Option {
	return func(s *Supervisor) { s.name = name }
}

// WithTimeout bounds how long a component is given to stop once its context
// is canceled before oversight considers the shutdown to have failed.
func WithTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.timeout = d }
}

// WithLogger sets the logger used for oversight's own diagnostic messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// New creates a Supervisor with the given options applied over defaults.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		name:    "rjms-supervisor",
		timeout: 10 * time.Second,
		logger:  rjmslog.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a Component to be started and restarted under supervision.
// Add must be called before Run.
func (s *Supervisor) Add(c Component) {
	s.components = append(s.components, namedComponent{name: c.Name(), c: c})
}

// Run builds the oversight tree from the registered components and runs it
// to completion, restarting any component that returns an error until ctx is
// canceled.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.components) == 0 {
		return ErrNoComponents
	}

	tree := oversight.New(
		oversight.NeverHalt(),
		oversight.DefaultRestartStrategy(),
		oversight.WithLogger(rjmslog.NewOversightLogger(s.logger)),
	)

	for _, nc := range s.components {
		if err := tree.Add(
			asChildProcess(nc.c),
			oversight.Transient(),
			oversight.Timeout(s.timeout),
			nc.name,
		); err != nil {
			return fmt.Errorf("failed to add %s to supervision tree: %w", nc.name, err)
		}
	}

	s.logger.InfoContext(ctx, "starting supervised components", "supervisor", s.name, "count", len(s.components))

	supervise := func(ctx context.Context, c chan error) {
		c <- tree.Start(ctx)
	}

	return singleNurseryRun(ctx, supervise)
}

// singleNurseryRun runs a single supervised goroutine through nursery so
// that panics inside the oversight tree itself are recovered the same way
// any other structured-concurrency failure in this process would be.
func singleNurseryRun(ctx context.Context, fn nursery.ConcurrentJob) error {
	return nursery.RunConcurrentlyWithContext(ctx, fn)
}
