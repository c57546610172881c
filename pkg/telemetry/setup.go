// SPDX-License-Identifier: BSD-3-Clause

package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/log/noop"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	defaultSetupOnce sync.Once
	globalProvider   *Provider
	setupMutex       sync.Mutex
	isSetup          bool
)

// DefaultSetup initializes OpenTelemetry with a no-op provider, enough to let
// the controller and agenda start spans and record counters without a caller
// having to configure an exporter first.
func DefaultSetup() {
	defaultSetupOnce.Do(func() {
		if _, err := Setup(context.Background(), WithServiceName("rjms-controller")); err != nil {
			provider := noop.NewLoggerProvider()
			global.SetLoggerProvider(provider)

			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))
		}
	})
}

// Setup initializes the OpenTelemetry providers used by this module. It
// returns a shutdown function that should be called when the controller is
// closed for good.
func Setup(ctx context.Context, opts ...Option) (func(context.Context) error, error) {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	if isSetup {
		return func(context.Context) error { return nil }, fmt.Errorf("telemetry already initialized - multiple setup calls not allowed")
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.serviceName == "" {
		return nil, fmt.Errorf("service name is mandatory and cannot be empty")
	}

	provider, err := NewProvider(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry provider: %w", err)
	}

	globalProvider = provider
	isSetup = true

	shutdown := func(shutdownCtx context.Context) error {
		setupMutex.Lock()
		defer setupMutex.Unlock()

		if globalProvider != nil {
			err := globalProvider.Shutdown(shutdownCtx)
			globalProvider = nil
			isSetup = false
			return err
		}
		return nil
	}

	return shutdown, nil
}

// GetTracer returns a tracer with the given name from the global provider,
// triggering DefaultSetup if nothing has configured telemetry yet.
func GetTracer(name string) trace.Tracer {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	if globalProvider == nil {
		setupMutex.Unlock()
		DefaultSetup()
		setupMutex.Lock()
	}

	if globalProvider != nil {
		return globalProvider.Tracer(name)
	}
	return otel.GetTracerProvider().Tracer(name)
}

// GetMeter returns a meter with the given name from the global provider,
// triggering DefaultSetup if nothing has configured telemetry yet.
func GetMeter(name string) metric.Meter {
	setupMutex.Lock()
	defer setupMutex.Unlock()

	if globalProvider == nil {
		setupMutex.Unlock()
		DefaultSetup()
		setupMutex.Lock()
	}

	if globalProvider != nil {
		return globalProvider.Meter(name)
	}
	return otel.GetMeterProvider().Meter(name)
}

// GetLogger returns a logger with the given name.
func GetLogger(name string) *slog.Logger {
	return slog.Default().With("component", name)
}

// IsInitialized returns true if a global telemetry provider has been initialized.
func IsInitialized() bool {
	setupMutex.Lock()
	defer setupMutex.Unlock()
	return globalProvider != nil && isSetup
}
