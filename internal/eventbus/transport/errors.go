// SPDX-License-Identifier: BSD-3-Clause

package transport

import "errors"

var (
	// ErrInvalidConfiguration indicates the transport configuration is invalid.
	ErrInvalidConfiguration = errors.New("invalid event bus transport configuration")
	// ErrServerCreationFailed indicates NATS server creation failed.
	ErrServerCreationFailed = errors.New("failed to create NATS server")
	// ErrServerNotReady indicates the NATS server is not ready for connections.
	ErrServerNotReady = errors.New("NATS server not ready for connections")
	// ErrServerTimeout indicates a server operation timed out.
	ErrServerTimeout = errors.New("NATS server operation timeout")
	// ErrConnectionNotAvailable indicates no connection is available.
	ErrConnectionNotAvailable = errors.New("connection not available")
	// ErrInProcessConnFailed indicates in-process connection creation failed.
	ErrInProcessConnFailed = errors.New("failed to create in-process connection")
)
