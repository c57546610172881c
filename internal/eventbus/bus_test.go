// SPDX-License-Identifier: BSD-3-Clause

package eventbus_test

import (
	"context"
	"sync"
	"testing"

	"github.com/batsim-go/rjms/internal/eventbus"
	"github.com/batsim-go/rjms/internal/eventbus/transport"
)

func startTestBus(t *testing.T) (*eventbus.Bus, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	tr := transport.New(transport.WithListen(false))

	errCh := make(chan error, 1)
	go func() { errCh <- tr.Run(ctx) }()

	bus, err := eventbus.Connect(tr.GetConnProvider(), nil)
	if err != nil {
		cancel()
		t.Fatalf("eventbus.Connect: %v", err)
	}

	return bus, func() {
		bus.Close()
		cancel()
		<-errCh
	}
}

func TestSubscribeRunsInRegistrationOrder(t *testing.T) {
	bus, stop := startTestBus(t)
	defer stop()

	var mu sync.Mutex
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(eventbus.KindJobSubmitted, func(ctx context.Context, evt eventbus.Event) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	if err := bus.Publish(context.Background(), eventbus.Event{
		Kind:      eventbus.KindJobSubmitted,
		Timestamp: 0,
		Payload:   eventbus.JobPayload{JobID: "job-0"},
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("dispatch order = %v, want ascending registration order", order)
		}
	}
	if len(order) != 5 {
		t.Fatalf("len(order) = %d, want 5", len(order))
	}
}

func TestPublishOnlyInvokesMatchingKind(t *testing.T) {
	bus, stop := startTestBus(t)
	defer stop()

	jobCalled := false
	hostCalled := false

	bus.Subscribe(eventbus.KindJobSubmitted, func(ctx context.Context, evt eventbus.Event) {
		jobCalled = true
	})
	bus.Subscribe(eventbus.KindHostStateChanged, func(ctx context.Context, evt eventbus.Event) {
		hostCalled = true
	})

	if err := bus.Publish(context.Background(), eventbus.Event{
		Kind:    eventbus.KindJobSubmitted,
		Payload: eventbus.JobPayload{JobID: "job-0"},
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if !jobCalled {
		t.Fatalf("expected job handler to run")
	}
	if hostCalled {
		t.Fatalf("host handler should not have run for a job event")
	}
}
