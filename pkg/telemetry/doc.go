// SPDX-License-Identifier: BSD-3-Clause

// Package telemetry provides OpenTelemetry integration for the RJMS control
// core: tracer/meter/logger provider setup, plus small helpers for starting
// spans and recording errors from deep inside the controller without having
// to thread a tracer through every call.
//
// By default the provider is a no-op (suitable for embedding the controller
// in a test or a policy-development harness); passing WithOTLPHTTP,
// WithOTLPgRPC, or WithDualOTLP wires a real exporter.
package telemetry
