// SPDX-License-Identifier: BSD-3-Clause

package controller

import (
	"fmt"

	"github.com/batsim-go/rjms/internal/platform"
	"github.com/batsim-go/rjms/internal/simadapter"
)

// buildPlatform constructs a platform.Platform from the wire-level
// description the simulator sent in SIMULATION_BEGINS.
func buildPlatform(spec simadapter.PlatformSpec) (*platform.Platform, error) {
	hosts := make([]*platform.Host, 0, len(spec.Hosts))
	for _, hs := range spec.Hosts {
		pstates := make([]platform.PowerState, 0, len(hs.PStates))
		for _, ps := range hs.PStates {
			t, err := pstateType(ps.Type)
			if err != nil {
				return nil, fmt.Errorf("host %d: %w", hs.ID, err)
			}
			pstates = append(pstates, platform.PowerState{
				ID:        ps.ID,
				Type:      t,
				Watts:     ps.Watts,
				IsDefault: ps.IsDefault,
			})
		}
		h, err := platform.NewHost(hs.ID, hs.Name, pstates, hs.ResourceIDs)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return platform.New(hosts), nil
}

func pstateType(s string) (platform.PowerStateType, error) {
	switch s {
	case "computation":
		return platform.PowerStateComputation, nil
	case "sleep":
		return platform.PowerStateSleep, nil
	case "switching-on":
		return platform.PowerStateSwitchingOn, nil
	case "switching-off":
		return platform.PowerStateSwitchingOff, nil
	default:
		return 0, fmt.Errorf("%w: unknown pstate type %q", platform.ErrInvalidPlatformSpec, s)
	}
}
