// SPDX-License-Identifier: BSD-3-Clause

package fsm

import "errors"

var (
	// ErrInvalidConfig indicates the machine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid state machine configuration")
	// ErrInvalidTrigger indicates the trigger is not valid from the current state.
	ErrInvalidTrigger = errors.New("invalid trigger")
	// ErrInvalidTransition indicates the underlying transition failed to commit.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrTransitionTimeout indicates a Fire call exceeded the configured state timeout.
	ErrTransitionTimeout = errors.New("state transition timeout")
	// ErrPersistenceFailed indicates the persistence callback returned an error.
	ErrPersistenceFailed = errors.New("failed to persist state")
	// ErrMachineExists indicates a Manager already has a machine with that name.
	ErrMachineExists = errors.New("state machine already exists")
	// ErrMachineNotFound indicates a Manager has no machine with that name.
	ErrMachineNotFound = errors.New("state machine not found")
)
