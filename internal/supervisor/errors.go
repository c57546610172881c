// SPDX-License-Identifier: BSD-3-Clause

package supervisor

import "errors"

var (
	// ErrComponentPanic indicates a supervised component panicked during execution.
	ErrComponentPanic = errors.New("component panicked during execution")
	// ErrNoComponents indicates a supervisor was started with no components registered.
	ErrNoComponents = errors.New("supervisor has no components to run")
)
