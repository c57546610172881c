// SPDX-License-Identifier: BSD-3-Clause

package job_test

import (
	"testing"
	"time"

	"github.com/batsim-go/rjms/internal/job"
)

func TestNewJobStartsSubmitted(t *testing.T) {
	j := job.New("job-0", 2, 100*time.Second, 0)

	if got := j.State(); got != job.StateSubmitted {
		t.Fatalf("State() = %v, want %v", got, job.StateSubmitted)
	}
	if !j.HasWalltime() {
		t.Fatalf("HasWalltime() = false, want true")
	}
}

func TestInfiniteWalltime(t *testing.T) {
	j := job.New("job-1", 1, job.InfiniteWalltime, 0)

	if j.HasWalltime() {
		t.Fatalf("HasWalltime() = true, want false for infinite walltime job")
	}
	if got := j.EndTime(); got != job.InfiniteWalltime {
		t.Fatalf("EndTime() = %v, want InfiniteWalltime", got)
	}
}

func TestSetAllocationCopiesSlice(t *testing.T) {
	j := job.New("job-2", 2, job.InfiniteWalltime, 0)
	ids := []int{3, 1}
	j.SetAllocation(ids)

	ids[0] = 99
	if j.Allocation[0] == 99 {
		t.Fatalf("SetAllocation did not copy its input slice")
	}
}

func TestStateIsTerminal(t *testing.T) {
	tests := []struct {
		state    job.State
		terminal bool
	}{
		{job.StateSubmitted, false},
		{job.StateRunnable, false},
		{job.StateRunning, false},
		{job.StateCompletedOK, true},
		{job.StateCompletedKilled, true},
		{job.StateCompletedWalltime, true},
		{job.StateRejected, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("%v.IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestEndTimeUsesStartTime(t *testing.T) {
	j := job.New("job-3", 1, 100*time.Second, 0)
	j.SetStartTime(10 * time.Second)

	if got, want := j.EndTime(), 110*time.Second; got != want {
		t.Fatalf("EndTime() = %v, want %v", got, want)
	}
}
