// SPDX-License-Identifier: BSD-3-Clause

// Package rjmsid generates identifiers for simulation runs. It wraps google/uuid so the rest of the module never imports
// the uuid package directly.
package rjmsid

import "github.com/google/uuid"

// New generates and returns a new random UUID as a string.
//
// The controller uses it for simulation run IDs.
func New() string {
	return uuid.New().String()
}
