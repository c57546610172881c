// SPDX-License-Identifier: BSD-3-Clause

package platform

// Resource is a leaf compute element belonging to exactly one Host. It has
// no power state of its own: it inherits whatever pstate its Host is
// currently in, which is why allocation and power operations in this
// package are host-scoped rather than resource-scoped.
type Resource struct {
	ID     int
	HostID int
}
