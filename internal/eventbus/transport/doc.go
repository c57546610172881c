// SPDX-License-Identifier: BSD-3-Clause

// Package transport runs the embedded NATS server that carries RJMS domain
// events between the controller, the agenda, and any simulator adapter that
// attaches from outside the process. By default it only accepts in-process
// connections (see ConnProvider); WithListen(true) opens it up to the socket
// adapter running as a separate process.
//
// This package is deliberately unaware of the event taxonomy published on
// top of it — see [github.com/batsim-go/rjms/internal/eventbus] for the
// subject names and the synchronous, registration-ordered dispatch contract
// built on this transport.
package transport
