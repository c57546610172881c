// SPDX-License-Identifier: BSD-3-Clause

package platform

import "fmt"

// Platform is the fixed topology of hosts and resources for a simulation
// run, built once from the simulator's platform description at
// simulation_begins and never restructured afterward.
type Platform struct {
	hosts     map[int]*Host
	resources map[int]*Resource
	// resourceOrder holds resource ids in ascending order, computed once at
	// construction, so AllResourceIDs can return them without re-sorting
	// on every call.
	resourceOrder []int
}

// New builds a Platform from the given hosts. Each host's ResourceIDs are
// indexed into per-resource lookup entries.
func New(hosts []*Host) *Platform {
	p := &Platform{
		hosts:     make(map[int]*Host, len(hosts)),
		resources: make(map[int]*Resource),
	}

	for _, h := range hosts {
		p.hosts[h.ID] = h
		for _, rid := range h.ResourceIDs() {
			p.resources[rid] = &Resource{ID: rid, HostID: h.ID}
		}
	}

	ids := make([]int, 0, len(p.resources))
	for id := range p.resources {
		ids = append(ids, id)
	}
	p.resourceOrder = sortedInts(ids)

	return p
}

// GetHost returns the host with the given id.
func (p *Platform) GetHost(id int) (*Host, error) {
	h, ok := p.hosts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrHostNotFound, id)
	}
	return h, nil
}

// GetResource returns the resource with the given id.
func (p *Platform) GetResource(id int) (*Resource, error) {
	r, ok := p.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrResourceNotFound, id)
	}
	return r, nil
}

// GetResources returns the resources named by ids, in ascending id order
// regardless of the order ids was given in.
func (p *Platform) GetResources(ids []int) ([]*Resource, error) {
	sorted := sortedInts(ids)
	out := make([]*Resource, 0, len(sorted))
	for _, id := range sorted {
		r, err := p.GetResource(id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// NbResources returns the total number of resources on the platform.
func (p *Platform) NbResources() int {
	return len(p.resources)
}

// AllResourceIDs returns every resource id on the platform in ascending order.
func (p *Platform) AllResourceIDs() []int {
	return append([]int(nil), p.resourceOrder...)
}

// Hosts returns every host on the platform. Order is unspecified; callers
// needing a stable order should sort on Host.ID themselves.
func (p *Platform) Hosts() []*Host {
	out := make([]*Host, 0, len(p.hosts))
	for _, h := range p.hosts {
		out = append(out, h)
	}
	return out
}
