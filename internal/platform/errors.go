// SPDX-License-Identifier: BSD-3-Clause

package platform

import "errors"

var (
	// ErrHostNotFound indicates no host exists with the given id.
	ErrHostNotFound = errors.New("host not found")
	// ErrResourceNotFound indicates no resource exists with the given id.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrPStateNotFound indicates a host has no power state with the given id.
	ErrPStateNotFound = errors.New("power state not found")
	// ErrInvalidState indicates the requested power transition is not
	// permitted from the host's current state.
	ErrInvalidState = errors.New("power transition not permitted from current host state")
	// ErrInvalidPlatformSpec indicates the platform specification itself is malformed.
	ErrInvalidPlatformSpec = errors.New("invalid platform specification")
)
