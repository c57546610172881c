// SPDX-License-Identifier: BSD-3-Clause

package controller

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// metrics bundles the in-process instruments the controller records
// through, for observing the core itself -- not the analytics/metrics
// export feature the spec's Non-goals exclude, which would be a
// policy-facing reporting pipeline built on top of this.
type metrics struct {
	jobsSubmitted          metric.Int64Counter
	jobsCompleted          metric.Int64Counter
	jobsRejected           metric.Int64Counter
	hostTransitionDuration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	jobsSubmitted, err := meter.Int64Counter("rjms.jobs.submitted",
		metric.WithDescription("number of jobs accepted into the queue"))
	if err != nil {
		return nil, fmt.Errorf("controller: failed to create rjms.jobs.submitted: %w", err)
	}

	jobsCompleted, err := meter.Int64Counter("rjms.jobs.completed",
		metric.WithDescription("number of jobs that reached a completed-* terminal state"))
	if err != nil {
		return nil, fmt.Errorf("controller: failed to create rjms.jobs.completed: %w", err)
	}

	jobsRejected, err := meter.Int64Counter("rjms.jobs.rejected",
		metric.WithDescription("number of jobs rejected without ever entering the queue"))
	if err != nil {
		return nil, fmt.Errorf("controller: failed to create rjms.jobs.rejected: %w", err)
	}

	hostTransitionDuration, err := meter.Float64Histogram("rjms.host.transition.duration",
		metric.WithDescription("wall-clock latency of a host power-state Fire call"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("controller: failed to create rjms.host.transition.duration: %w", err)
	}

	return &metrics{
		jobsSubmitted:          jobsSubmitted,
		jobsCompleted:          jobsCompleted,
		jobsRejected:           jobsRejected,
		hostTransitionDuration: hostTransitionDuration,
	}, nil
}
