// SPDX-License-Identifier: BSD-3-Clause

package synthetic_test

import (
	"context"
	"testing"

	"github.com/batsim-go/rjms/internal/simadapter"
	"github.com/batsim-go/rjms/internal/simadapter/synthetic"
)

func TestProceedSimulationInvokesRegisteredCallback(t *testing.T) {
	a := synthetic.New(
		simadapter.EventBatch{{Kind: simadapter.EventSimulationBegins, Timestamp: 0}},
		simadapter.EventBatch{{Kind: simadapter.EventJobSubmitted, Timestamp: 5, Payload: simadapter.JobSubmittedPayload{JobID: "job-0", Res: 1}}},
	)

	var seen []string
	a.SetCallback(simadapter.EventJobSubmitted, func(evt simadapter.Event) {
		p := evt.Payload.(simadapter.JobSubmittedPayload)
		seen = append(seen, p.JobID)
	})

	ctx := context.Background()
	if _, err := a.Start(ctx, simadapter.PlatformSpec{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := a.ProceedSimulation(ctx); err != nil {
		t.Fatalf("ProceedSimulation: %v", err)
	}

	if len(seen) != 1 || seen[0] != "job-0" {
		t.Fatalf("callback did not observe expected job id, got %v", seen)
	}
}

func TestProceedSimulationExhaustsScript(t *testing.T) {
	a := synthetic.New(simadapter.EventBatch{{Kind: simadapter.EventSimulationBegins, Timestamp: 0}})
	ctx := context.Background()

	if _, err := a.Start(ctx, simadapter.PlatformSpec{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := a.ProceedSimulation(ctx); err == nil {
		t.Fatalf("expected error once the script is exhausted")
	}
}

func TestExecuteJobIsRecorded(t *testing.T) {
	a := synthetic.New(simadapter.EventBatch{{Kind: simadapter.EventSimulationBegins, Timestamp: 0}})
	ctx := context.Background()
	if _, err := a.Start(ctx, simadapter.PlatformSpec{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := a.ExecuteJob(ctx, "job-0", []int{0}); err != nil {
		t.Fatalf("ExecuteJob: %v", err)
	}

	if len(a.Sent) != 1 || a.Sent[0].Kind != "EXECUTE_JOB" || a.Sent[0].JobID != "job-0" {
		t.Fatalf("ExecuteJob not recorded as expected: %+v", a.Sent)
	}
}
