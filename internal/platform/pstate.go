// SPDX-License-Identifier: BSD-3-Clause

package platform

// PowerStateType classifies what a PowerState represents in the host
// lifecycle graph.
type PowerStateType int

const (
	// PowerStateComputation is a pstate a host can actively compute in.
	PowerStateComputation PowerStateType = iota
	// PowerStateSleep is the pstate a host settles into once fully asleep.
	PowerStateSleep
	// PowerStateSwitchingOn is the transitional pstate while waking up.
	PowerStateSwitchingOn
	// PowerStateSwitchingOff is the transitional pstate while going to sleep.
	PowerStateSwitchingOff
)

// String implements fmt.Stringer.
func (t PowerStateType) String() string {
	switch t {
	case PowerStateComputation:
		return "computation"
	case PowerStateSleep:
		return "sleep"
	case PowerStateSwitchingOn:
		return "switching-on"
	case PowerStateSwitchingOff:
		return "switching-off"
	default:
		return "unknown"
	}
}

// PowerState is one named operating point of a host.
type PowerState struct {
	ID   int
	Type PowerStateType
	// Watts is this pstate's power draw profile. batsim_py models an
	// idle/full wattage pair per pstate; this module only needs a single
	// nominal figure since it never simulates energy physics itself (see
	// spec Non-goals), but keeps the field for policies that do their own
	// energy accounting from the power-state-changed event stream.
	Watts float64
	// IsDefault marks the computation pstate a host starts and returns to
	// after wake-up. Exactly one pstate per host must have this set.
	IsDefault bool
}
