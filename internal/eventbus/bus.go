// SPDX-License-Identifier: BSD-3-Clause

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/batsim-go/rjms/internal/eventbus/transport"
	"github.com/batsim-go/rjms/pkg/rjmslog"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler is called for every Event of the Kind it was subscribed to, in
// the order subscriptions were registered.
type Handler func(ctx context.Context, evt Event)

// Bus publishes Events over the embedded transport and fans them out to
// local, in-process subscribers in registration order.
type Bus struct {
	nc     *nats.Conn
	logger *slog.Logger
	tracer trace.Tracer

	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

// Connect dials the given transport and returns a Bus ready to publish and
// subscribe. The returned Bus owns the *nats.Conn and closes it on Close.
func Connect(provider *transport.ConnProvider, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = rjmslog.GetGlobalLogger()
	}

	nc, err := nats.Connect("", nats.InProcessServer(provider))
	if err != nil {
		return nil, fmt.Errorf("eventbus: failed to connect to transport: %w", err)
	}

	b := &Bus{
		nc:       nc,
		logger:   logger,
		tracer:   otel.Tracer("eventbus"),
		handlers: make(map[Kind][]Handler),
	}

	return b, nil
}

// Close drains and closes the underlying connection.
func (b *Bus) Close() {
	b.nc.Drain()
}

// Subscribe registers handler to run, in order, for every Event of kind.
func (b *Bus) Subscribe(kind Kind, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[kind] = append(b.handlers[kind], handler)
}

// Publish marshals evt and sends it over the transport. Local subscribers
// registered for evt.Kind run synchronously before Publish returns,
// independent of however NATS schedules delivery to the connection's own
// subscription callback, so callers can rely on dispatch having happened
// once Publish returns.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	ctx, span := b.tracer.Start(ctx, "eventbus.Publish", trace.WithAttributes(
		attribute.String("eventbus.kind", string(evt.Kind)),
	))
	defer span.End()

	data, err := json.Marshal(evt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("eventbus: failed to marshal event %s: %w", evt.Kind, err)
	}

	if err := b.nc.Publish(evt.Kind.subject(), data); err != nil {
		span.RecordError(err)
		return fmt.Errorf("eventbus: failed to publish event %s: %w", evt.Kind, err)
	}

	b.dispatchLocal(ctx, evt)

	return nil
}

func (b *Bus) dispatchLocal(ctx context.Context, evt Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[evt.Kind]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, evt)
	}
}

// RawConn returns the underlying NATS connection, for callers that need to
// subscribe directly (e.g. a standalone process observing the simulation
// from outside this Bus's in-process Subscribe registry). Such subscribers
// receive the same JSON envelope Publish sends, keyed by Kind.subject().
func (b *Bus) RawConn() *nats.Conn {
	return b.nc
}
