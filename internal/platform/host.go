// SPDX-License-Identifier: BSD-3-Clause

package platform

import (
	"context"
	"fmt"
	"sort"

	"github.com/batsim-go/rjms/pkg/fsm"
)

// Host power states, named to match the lifecycle graph in the platform
// model: idle <-> computing, and idle -> switching-off -> sleeping ->
// switching-on -> idle.
const (
	HostStateIdle         = "idle"
	HostStateComputing    = "computing"
	HostStateSwitchingOff = "switching-off"
	HostStateSleeping     = "sleeping"
	HostStateSwitchingOn  = "switching-on"
)

// Host power state triggers.
const (
	triggerStartComputing = "start_computing"
	triggerRelease        = "release"
	triggerSleep          = "sleep"
	triggerSleepConfirmed = "sleep_confirmed"
	triggerWakeUp         = "wake_up"
	triggerWakeConfirmed  = "wake_confirmed"
)

// Host is a physical or virtual machine that owns a set of Resources and
// moves through a power-state lifecycle independent of any single job:
// several resources on the same host can be held by different jobs at
// once, and the host only returns to idle once none of them are held.
type Host struct {
	ID   int
	Name string

	PStates          []PowerState
	CurrentPStateID  int
	defaultComputeID int

	resourceIDs []int
	heldBy      map[int]string // resource id -> job id

	lifecycle *fsm.Machine
}

// NewHost builds a Host with the given pstates and resource ids, starting
// idle in its default computation pstate. Exactly one pstate in pstates
// must have IsDefault set.
func NewHost(id int, name string, pstates []PowerState, resourceIDs []int) (*Host, error) {
	defaultID := -1
	for _, p := range pstates {
		if p.IsDefault {
			defaultID = p.ID
			break
		}
	}
	if defaultID == -1 {
		return nil, fmt.Errorf("%w: host %d declares no default computation pstate", ErrInvalidPlatformSpec, id)
	}

	h := &Host{
		ID:               id,
		Name:             name,
		PStates:          pstates,
		CurrentPStateID:  defaultID,
		defaultComputeID: defaultID,
		resourceIDs:      append([]int(nil), resourceIDs...),
		heldBy:           make(map[int]string),
	}

	lifecycle, err := fsm.New(fsm.NewConfig(
		fsm.WithName(fmt.Sprintf("host-%d", id)),
		fsm.WithInitialState(HostStateIdle),
		fsm.WithStates(
			fsm.StateDef{Name: HostStateIdle},
			fsm.StateDef{Name: HostStateComputing},
			fsm.StateDef{Name: HostStateSwitchingOff},
			fsm.StateDef{Name: HostStateSleeping},
			fsm.StateDef{Name: HostStateSwitchingOn},
		),
		fsm.WithTransition(HostStateIdle, HostStateComputing, triggerStartComputing),
		fsm.WithGuardedTransition(HostStateComputing, HostStateIdle, triggerRelease, func(context.Context) bool {
			return len(h.heldBy) == 0
		}),
		fsm.WithTransition(HostStateIdle, HostStateSwitchingOff, triggerSleep),
		fsm.WithTransition(HostStateSwitchingOff, HostStateSleeping, triggerSleepConfirmed),
		fsm.WithTransition(HostStateSleeping, HostStateSwitchingOn, triggerWakeUp),
		fsm.WithTransition(HostStateSwitchingOn, HostStateIdle, triggerWakeConfirmed),
	))
	if err != nil {
		return nil, err
	}
	h.lifecycle = lifecycle

	return h, nil
}

// State returns the host's current power state name.
func (h *Host) State(ctx context.Context) string {
	return h.lifecycle.State(ctx)
}

// ResourceIDs returns the ids of resources belonging to this host, in
// ascending order.
func (h *Host) ResourceIDs() []int {
	return append([]int(nil), h.resourceIDs...)
}

// Sleep requests the host begin switching off. Valid only from idle. It
// sets CurrentPStateID to the switching-off pstate and returns that id, the
// pstate to request from the simulator; the host reaches sleeping when
// SetPState is later given a sleep pstate.
func (h *Host) Sleep(ctx context.Context) (int, error) {
	if err := h.lifecycle.Fire(ctx, triggerSleep); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	id, err := h.pstateOfType(PowerStateSwitchingOff)
	if err != nil {
		return 0, err
	}
	h.CurrentPStateID = id
	return id, nil
}

// WakeUp requests the host begin waking. Valid only from sleeping. It sets
// CurrentPStateID to the switching-on pstate and returns that id, the
// pstate to request from the simulator; the host reaches idle when
// SetPState is later given a computation pstate.
func (h *Host) WakeUp(ctx context.Context) (int, error) {
	if err := h.lifecycle.Fire(ctx, triggerWakeUp); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	id, err := h.pstateOfType(PowerStateSwitchingOn)
	if err != nil {
		return 0, err
	}
	h.CurrentPStateID = id
	return id, nil
}

// StartComputing marks the host as actively running a job. Valid only from idle.
func (h *Host) StartComputing(ctx context.Context) error {
	if err := h.lifecycle.Fire(ctx, triggerStartComputing); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return nil
}

// Hold records that resourceID is now backing jobID's execution.
func (h *Host) Hold(resourceID int, jobID string) {
	h.heldBy[resourceID] = jobID
}

// Release frees resourceID from whatever job held it. If this was the last
// held resource on the host, the host transitions from computing back to
// idle.
func (h *Host) Release(ctx context.Context, resourceID int) error {
	delete(h.heldBy, resourceID)
	if len(h.heldBy) > 0 {
		return nil
	}
	if h.lifecycle.State(ctx) != HostStateComputing {
		return nil
	}
	if err := h.lifecycle.Fire(ctx, triggerRelease); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return nil
}

// HostStateChange classifies what SetPState observed, so the controller
// knows whether to emit HOST_STATE_CHANGED or
// HOST_COMPUTATION_POWER_STATE_CHANGED per the event dispatch rule.
type HostStateChange int

const (
	// NoStateChange means only the pstate bookkeeping moved, not the
	// lifecycle's coarse state.
	NoStateChange HostStateChange = iota
	// LifecycleStateChanged means the host's idle/computing/sleeping/etc
	// state advanced as a result of this pstate change.
	LifecycleStateChanged
)

// SetPState applies a simulator-confirmed pstate change to the host. It is
// the single entry point used both by the switch_power_state policy
// operation and by the controller's resource_power_state_changed handler:
// which FSM transition (if any) fires depends on the pstate's type and the
// host's current lifecycle state.
func (h *Host) SetPState(ctx context.Context, pstateID int) (HostStateChange, error) {
	ps, err := h.findPState(pstateID)
	if err != nil {
		return NoStateChange, err
	}

	current := h.lifecycle.State(ctx)

	switch {
	case ps.Type == PowerStateSleep && current == HostStateSwitchingOff:
		if err := h.lifecycle.Fire(ctx, triggerSleepConfirmed); err != nil {
			return NoStateChange, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		h.CurrentPStateID = pstateID
		return LifecycleStateChanged, nil

	case ps.Type == PowerStateComputation && current == HostStateSwitchingOn:
		if err := h.lifecycle.Fire(ctx, triggerWakeConfirmed); err != nil {
			return NoStateChange, fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		h.CurrentPStateID = pstateID
		return LifecycleStateChanged, nil

	case ps.Type == PowerStateComputation && (current == HostStateIdle || current == HostStateComputing):
		h.CurrentPStateID = pstateID
		return NoStateChange, nil

	default:
		return NoStateChange, fmt.Errorf("%w: pstate %d (%s) not applicable from host state %s", ErrInvalidState, pstateID, ps.Type, current)
	}
}

func (h *Host) pstateOfType(t PowerStateType) (int, error) {
	for _, p := range h.PStates {
		if p.Type == t {
			return p.ID, nil
		}
	}
	return 0, fmt.Errorf("%w: host %d has no pstate of type %s", ErrPStateNotFound, h.ID, t)
}

func (h *Host) findPState(id int) (PowerState, error) {
	for _, p := range h.PStates {
		if p.ID == id {
			return p, nil
		}
	}
	return PowerState{}, fmt.Errorf("%w: pstate %d on host %d", ErrPStateNotFound, id, h.ID)
}

// sortedInts returns a freshly sorted ascending copy of ids.
func sortedInts(ids []int) []int {
	out := append([]int(nil), ids...)
	sort.Ints(out)
	return out
}
