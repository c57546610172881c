// SPDX-License-Identifier: BSD-3-Clause

// Package rjmslog provides the structured logger used throughout the RJMS
// control core. It fans a single log/slog.Logger out to two destinations at
// once: a zerolog console writer for humans watching a simulation run, and
// the global OpenTelemetry logger provider for correlation with traces and
// metrics emitted by [github.com/batsim-go/rjms/pkg/telemetry].
//
// NewDefaultLogger and GetGlobalLogger both return this fanned-out logger;
// GetGlobalLogger is the one to reach for when a component needs a logger
// but isn't in a position to construct and thread its own. The remaining
// adapters (NATSLogger, NewOversightLogger, NewStdLoggerAt) let the event
// bus transport, the supervision tree, and any subprocess-based simulator
// adapter log through the same *slog.Logger instead of their own writers.
package rjmslog
