// SPDX-License-Identifier: BSD-3-Clause

// Package platform models the fixed topology of a simulation run: Hosts,
// each owning a set of Resources and moving through a power-state
// lifecycle (idle, computing, switching-off, sleeping, switching-on)
// driven by a pkg/fsm.Machine, and a Platform aggregate that indexes both
// for the lookups the controller and agenda need (get_host, get_resource,
// get_resources, nb_resources).
//
// A Resource has no state of its own: it inherits whatever pstate its Host
// is currently in. All power operations are therefore host-scoped, and a
// Host only returns to idle once every resource it has handed to a running
// job has been released back to it.
package platform
