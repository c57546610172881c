// SPDX-License-Identifier: BSD-3-Clause

package agenda_test

import (
	"errors"
	"testing"
	"time"

	"github.com/batsim-go/rjms/internal/agenda"
	"github.com/batsim-go/rjms/internal/job"
	"github.com/batsim-go/rjms/internal/platform"
)

func testPlatform(t *testing.T) *platform.Platform {
	t.Helper()
	pstates := []platform.PowerState{
		{ID: 0, Type: platform.PowerStateComputation, Watts: 120, IsDefault: true},
	}
	h0, err := platform.NewHost(0, "host-0", pstates, []int{0, 1})
	if err != nil {
		t.Fatalf("NewHost(0): %v", err)
	}
	h1, err := platform.NewHost(1, "host-1", pstates, []int{2})
	if err != nil {
		t.Fatalf("NewHost(1): %v", err)
	}
	return platform.New([]*platform.Host{h0, h1})
}

func TestReserveAndRelease(t *testing.T) {
	a := agenda.New(testPlatform(t))

	j := job.New("job-0", 2, 10*time.Second, 0)
	j.SetAllocation([]int{0, 1})

	if err := a.Reserve(j); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	avail := a.AvailableResources()
	if len(avail) != 1 || avail[0] != 2 {
		t.Fatalf("AvailableResources() = %v, want [2]", avail)
	}

	a.Release(0, 1)
	avail = a.AvailableResources()
	if len(avail) != 3 {
		t.Fatalf("AvailableResources() after release = %v, want all 3 free", avail)
	}
}

func TestReserveRejectsDoubleBooking(t *testing.T) {
	a := agenda.New(testPlatform(t))

	j1 := job.New("job-0", 1, job.InfiniteWalltime, 0)
	j1.SetAllocation([]int{0})
	if err := a.Reserve(j1); err != nil {
		t.Fatalf("Reserve j1: %v", err)
	}

	j2 := job.New("job-1", 1, job.InfiniteWalltime, 0)
	j2.SetAllocation([]int{0})
	if err := a.Reserve(j2); !errors.Is(err, agenda.ErrAlreadyReserved) {
		t.Fatalf("Reserve j2 onto held resource: err = %v, want ErrAlreadyReserved", err)
	}
}

func TestAvailableNodesRequiresAllResourcesFree(t *testing.T) {
	a := agenda.New(testPlatform(t))

	j := job.New("job-0", 1, job.InfiniteWalltime, 0)
	j.SetAllocation([]int{0})
	if err := a.Reserve(j); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	nodes := a.AvailableNodes()
	for _, n := range nodes {
		if n == 0 {
			t.Fatalf("host 0 reported available despite resource 0 being held")
		}
	}
	found1 := false
	for _, n := range nodes {
		if n == 1 {
			found1 = true
		}
	}
	if !found1 {
		t.Fatalf("host 1 should be available, got %v", nodes)
	}
}

func TestProgressAndReservedTimeForRunningJob(t *testing.T) {
	a := agenda.New(testPlatform(t))

	j := job.New("job-0", 1, 100*time.Second, 0)
	j.SetAllocation([]int{0})
	if err := a.Reserve(j); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	j.SetState(job.StateRunning)
	j.SetStartTime(0)

	progress := a.Progress(40 * time.Second)
	if got, want := progress[0], 0.6; got != want {
		t.Fatalf("Progress()[0] = %v, want %v", got, want)
	}

	reserved := a.ReservedTime(40 * time.Second)
	if got, want := reserved[0], 60*time.Second; got != want {
		t.Fatalf("ReservedTime()[0] = %v, want %v", got, want)
	}
}

func TestProgressForInfiniteWalltimeJob(t *testing.T) {
	a := agenda.New(testPlatform(t))

	j := job.New("job-0", 1, job.InfiniteWalltime, 0)
	j.SetAllocation([]int{0})
	if err := a.Reserve(j); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	j.SetState(job.StateRunning)
	j.SetStartTime(0)

	reserved := a.ReservedTime(40 * time.Second)
	if reserved[0] != job.InfiniteWalltime {
		t.Fatalf("ReservedTime()[0] = %v, want InfiniteWalltime", reserved[0])
	}
}
