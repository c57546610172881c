// SPDX-License-Identifier: BSD-3-Clause

// Package fsm wraps github.com/qmuntal/stateless in a small, thread-safe API
// built around two calls: State, to read where a machine currently is, and
// Fire, to attempt a trigger and block until it commits, times out, or is
// rejected. Every transition that commits is handed to the configured
// PersistenceCallback and BroadcastCallback before Fire returns, so callers
// get durability and event-bus fan-out for free instead of doing it at every
// call site.
//
// Manager tracks a named set of machines; the platform model keeps one
// Machine per host for its power-state lifecycle.
package fsm
