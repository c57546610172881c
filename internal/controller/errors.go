// SPDX-License-Identifier: BSD-3-Clause

package controller

import "errors"

var (
	// ErrNotRunning indicates an operation that requires an active
	// simulation was called while none is in progress.
	ErrNotRunning = errors.New("controller: not running")
	// ErrAlreadyRunning indicates start was called while a simulation was
	// already in progress.
	ErrAlreadyRunning = errors.New("controller: already running")
	// ErrInvalidArgument indicates a caller-supplied value failed validation.
	ErrInvalidArgument = errors.New("controller: invalid argument")
	// ErrJobNotFound indicates no job exists with the given id.
	ErrJobNotFound = errors.New("controller: job not found")
	// ErrInsufficientResources indicates fewer free resources exist than a
	// job requires.
	ErrInsufficientResources = errors.New("controller: insufficient resources")
	// ErrAdapterUnavailable indicates the simulator backend could not be reached.
	ErrAdapterUnavailable = errors.New("controller: adapter unavailable")
)
