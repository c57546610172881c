// SPDX-License-Identifier: BSD-3-Clause

package platform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/batsim-go/rjms/internal/platform"
)

func testPStates() []platform.PowerState {
	return []platform.PowerState{
		{ID: 0, Type: platform.PowerStateComputation, Watts: 120, IsDefault: true},
		{ID: 1, Type: platform.PowerStateSwitchingOff, Watts: 100},
		{ID: 2, Type: platform.PowerStateSleep, Watts: 5},
		{ID: 3, Type: platform.PowerStateSwitchingOn, Watts: 100},
	}
}

func TestNewHostStartsIdle(t *testing.T) {
	h, err := platform.NewHost(0, "host-0", testPStates(), []int{0, 1})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	ctx := context.Background()
	if got := h.State(ctx); got != platform.HostStateIdle {
		t.Fatalf("State() = %q, want %q", got, platform.HostStateIdle)
	}
}

func TestHostSleepWakeCycle(t *testing.T) {
	h, err := platform.NewHost(0, "host-0", testPStates(), []int{0})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	ctx := context.Background()

	offID, err := h.Sleep(ctx)
	if err != nil {
		t.Fatalf("Sleep: %v", err)
	}
	if h.State(ctx) != platform.HostStateSwitchingOff {
		t.Fatalf("State() = %q, want switching-off", h.State(ctx))
	}
	_ = offID

	change, err := h.SetPState(ctx, 2) // sleep pstate id
	if err != nil {
		t.Fatalf("SetPState(sleep): %v", err)
	}
	if change != platform.LifecycleStateChanged {
		t.Fatalf("expected lifecycle state change entering sleep")
	}
	if h.State(ctx) != platform.HostStateSleeping {
		t.Fatalf("State() = %q, want sleeping", h.State(ctx))
	}

	onID, err := h.WakeUp(ctx)
	if err != nil {
		t.Fatalf("WakeUp: %v", err)
	}
	if h.State(ctx) != platform.HostStateSwitchingOn {
		t.Fatalf("State() = %q, want switching-on", h.State(ctx))
	}
	_ = onID

	change, err = h.SetPState(ctx, 0) // default computation pstate
	if err != nil {
		t.Fatalf("SetPState(wake confirm): %v", err)
	}
	if change != platform.LifecycleStateChanged {
		t.Fatalf("expected lifecycle state change completing wake-up")
	}
	if h.State(ctx) != platform.HostStateIdle {
		t.Fatalf("State() = %q, want idle", h.State(ctx))
	}
}

func TestHostCannotSleepWhileComputing(t *testing.T) {
	h, err := platform.NewHost(0, "host-0", testPStates(), []int{0})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	ctx := context.Background()

	if err := h.StartComputing(ctx); err != nil {
		t.Fatalf("StartComputing: %v", err)
	}
	if _, err := h.Sleep(ctx); !errors.Is(err, platform.ErrInvalidState) {
		t.Fatalf("Sleep while computing: err = %v, want ErrInvalidState", err)
	}
}

func TestHostReleaseOnlyIdlesWhenUnheld(t *testing.T) {
	h, err := platform.NewHost(0, "host-0", testPStates(), []int{0, 1})
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	ctx := context.Background()

	if err := h.StartComputing(ctx); err != nil {
		t.Fatalf("StartComputing: %v", err)
	}
	h.Hold(0, "job-a")
	h.Hold(1, "job-b")

	if err := h.Release(ctx, 0); err != nil {
		t.Fatalf("Release resource 0: %v", err)
	}
	if h.State(ctx) != platform.HostStateComputing {
		t.Fatalf("host idled early: State() = %q", h.State(ctx))
	}

	if err := h.Release(ctx, 1); err != nil {
		t.Fatalf("Release resource 1: %v", err)
	}
	if h.State(ctx) != platform.HostStateIdle {
		t.Fatalf("State() = %q, want idle once all resources released", h.State(ctx))
	}
}
