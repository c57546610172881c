// SPDX-License-Identifier: BSD-3-Clause

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/batsim-go/rjms/pkg/rjmslog"
	"github.com/nats-io/nats-server/v2/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Transport is an embedded NATS server used as the in-process event bus
// between the RJMS controller, the agenda, and any out-of-process simulator
// adapter. It eliminates the need for an external broker when the whole
// simulation runs in a single Go process, while still allowing a socket-based
// adapter to attach over TCP when WithListen is set.
type Transport struct {
	config *config
	server *server.Server
	logger *slog.Logger
	tracer trace.Tracer
}

// New creates a new event bus transport with the given options applied on
// top of sensible defaults. The server is not started until Run is called.
func New(opts ...Option) *Transport {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Transport{config: cfg}
}

// Name returns the transport's configured service name.
func (t *Transport) Name() string {
	return t.config.serviceName
}

// Run starts the embedded NATS server and blocks until ctx is canceled, at
// which point it performs a graceful shutdown and returns.
func (t *Transport) Run(ctx context.Context) error {
	t.tracer = otel.Tracer(t.config.serviceName)

	ctx, span := t.tracer.Start(ctx, "Run")
	defer span.End()

	t.logger = rjmslog.GetGlobalLogger().With("component", t.config.serviceName)
	t.logger.InfoContext(ctx, "starting event bus transport",
		"version", t.config.serviceVersion,
		"server_name", t.config.serverName,
		"jetstream_enabled", t.config.enableJetStream,
		"store_dir", t.config.storeDir)

	if err := t.config.Validate(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	serverOpts := t.config.ToServerOptions()
	ns, err := server.NewServer(serverOpts)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrServerCreationFailed, err)
	}
	t.server = ns
	t.server.SetLoggerV2(rjmslog.NewNATSLogger(t.logger), true, false, false)

	t.logger.InfoContext(ctx, "starting NATS server", "server_name", t.config.serverName)
	t.server.Start()

	if !t.server.ReadyForConnections(t.config.startupTimeout) {
		t.server.Shutdown()
		err := fmt.Errorf("%w: server not ready within %v", ErrServerTimeout, t.config.startupTimeout)
		span.RecordError(err)
		return err
	}

	t.logger.InfoContext(ctx, "event bus transport ready",
		"server_name", t.config.serverName,
		"server_id", t.server.ID(),
		"jetstream_enabled", t.config.enableJetStream)

	span.SetAttributes(
		attribute.String("service.name", t.config.serviceName),
		attribute.String("server.name", t.config.serverName),
		attribute.String("server.id", t.server.ID()),
		attribute.Bool("jetstream.enabled", t.config.enableJetStream),
	)

	<-ctx.Done()

	return t.shutdown(ctx)
}

// GetConnProvider returns a ConnProvider that blocks until the embedded
// server is ready, suitable for handing to an in-process NATS client before
// Run has finished starting the server.
func (t *Transport) GetConnProvider() *ConnProvider {
	timeout := time.Now().Add(t.config.startupTimeout)
	for t.server == nil && time.Now().Before(timeout) {
		time.Sleep(time.Millisecond)
	}
	return &ConnProvider{server: t.server}
}

func (t *Transport) shutdown(ctx context.Context) error {
	err := ctx.Err()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.config.shutdownTimeout)
	defer cancel()

	t.logger.InfoContext(shutdownCtx, "shutting down event bus transport",
		"shutdown_timeout", t.config.shutdownTimeout)

	if t.server != nil {
		t.logger.InfoContext(shutdownCtx, "initiating lame duck shutdown")
		t.server.LameDuckShutdown()

		done := make(chan struct{})
		go func() {
			defer close(done)
			t.server.Shutdown()
		}()

		select {
		case <-done:
			t.logger.InfoContext(shutdownCtx, "event bus transport shutdown completed")
		case <-shutdownCtx.Done():
			t.logger.WarnContext(shutdownCtx, "event bus transport shutdown timed out, forcing shutdown")
		}
	}

	return err
}
