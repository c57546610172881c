// SPDX-License-Identifier: BSD-3-Clause

package fsm

import (
	"fmt"
	"sync"
)

// Manager tracks a named set of machines, looked up by name. The platform
// model does not use it: each Host holds its own Machine.
type Manager struct {
	machines map[string]*Machine
	mu       sync.RWMutex
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		machines: make(map[string]*Machine),
	}
}

// Add registers m under its own Name. It fails if a machine with that name
// is already registered.
func (mgr *Manager) Add(m *Machine) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if m == nil {
		return fmt.Errorf("%w: nil machine", ErrInvalidConfig)
	}
	if _, exists := mgr.machines[m.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrMachineExists, m.Name())
	}
	mgr.machines[m.Name()] = m
	return nil
}

// Remove unregisters the machine with the given name.
func (mgr *Manager) Remove(name string) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if _, exists := mgr.machines[name]; !exists {
		return fmt.Errorf("%w: %s", ErrMachineNotFound, name)
	}
	delete(mgr.machines, name)
	return nil
}

// Get returns the machine registered under name.
func (mgr *Manager) Get(name string) (*Machine, error) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	m, exists := mgr.machines[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrMachineNotFound, name)
	}
	return m, nil
}

// List returns the names of all registered machines.
func (mgr *Manager) List() []string {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()

	names := make([]string, 0, len(mgr.machines))
	for name := range mgr.machines {
		names = append(names, name)
	}
	return names
}
