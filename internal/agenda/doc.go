// SPDX-License-Identifier: BSD-3-Clause

// Package agenda mirrors batsim_py's Agenda: a SortedDict-style reservation
// map keyed by resource id, queried in ascending id order so progress and
// reserved-time reports are reproducible across runs regardless of map
// iteration order.
package agenda
