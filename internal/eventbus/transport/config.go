// SPDX-License-Identifier: BSD-3-Clause

package transport

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// Defaults for the embedded NATS server backing the event bus.
const (
	DefaultServiceName        = "eventbus"
	DefaultServiceDescription = "in-process event bus for the RJMS control core"
	DefaultServiceVersion     = "0.1.0"
	DefaultServerName         = "rjms-eventbus"
	DefaultStoreDir           = "/var/lib/rjms/eventbus"
	DefaultMaxMemory          = 64 * 1024 * 1024
	DefaultMaxStorage         = 256 * 1024 * 1024
	DefaultStartupTimeout     = 5 * time.Second
	DefaultShutdownTimeout    = 5 * time.Second
)

type config struct {
	serviceName                 string
	serviceDescription          string
	serviceVersion              string
	serverName                  string
	storeDir                    string
	enableJetStream             bool
	dontListen                  bool
	maxMemory                   int64
	maxStorage                  int64
	startupTimeout              time.Duration
	shutdownTimeout             time.Duration
	maxConnections              int
	maxControlLine              int32
	maxPayload                  int32
	writeDeadline               time.Duration
	pingInterval                time.Duration
	maxPingsOut                 int
	enableSlowConsumerDetection bool
	slowConsumerThreshold       time.Duration
}

// Option configures the event bus transport.
type Option func(*config)

// WithServiceName sets the logical name reported by the transport.
func WithServiceName(name string) Option {
	return func(c *config) { c.serviceName = name }
}

// WithServerName sets the NATS server's own name, used in logs and IDs.
func WithServerName(name string) Option {
	return func(c *config) { c.serverName = name }
}

// WithStoreDir sets the JetStream storage directory.
func WithStoreDir(dir string) Option {
	return func(c *config) { c.storeDir = dir }
}

// WithJetStream enables or disables JetStream persistence. The event bus
// works without it (plain pub/sub), but controllers that want replayable
// event history should enable it.
func WithJetStream(enabled bool) Option {
	return func(c *config) { c.enableJetStream = enabled }
}

// WithListen allows the server to accept real TCP connections in addition
// to in-process ones, which is useful when a socket-based simulator adapter
// runs as a separate process and needs to reach the bus.
func WithListen(listen bool) Option {
	return func(c *config) { c.dontListen = !listen }
}

// WithMaxMemory sets the maximum memory JetStream may use for storage.
func WithMaxMemory(bytes int64) Option {
	return func(c *config) { c.maxMemory = bytes }
}

// WithMaxStorage sets the maximum disk space JetStream may use for storage.
func WithMaxStorage(bytes int64) Option {
	return func(c *config) { c.maxStorage = bytes }
}

// WithStartupTimeout bounds how long Run waits for the server to become
// ready for connections before giving up.
func WithStartupTimeout(d time.Duration) Option {
	return func(c *config) { c.startupTimeout = d }
}

// WithShutdownTimeout bounds how long graceful shutdown waits for
// connections to drain before the server is forced down.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) { c.shutdownTimeout = d }
}

func defaultConfig() *config {
	return &config{
		serviceName:                 DefaultServiceName,
		serviceDescription:          DefaultServiceDescription,
		serviceVersion:              DefaultServiceVersion,
		serverName:                  DefaultServerName,
		storeDir:                    DefaultStoreDir,
		enableJetStream:             false,
		dontListen:                  true,
		maxMemory:                   DefaultMaxMemory,
		maxStorage:                  DefaultMaxStorage,
		startupTimeout:              DefaultStartupTimeout,
		shutdownTimeout:             DefaultShutdownTimeout,
		maxConnections:              0,
		maxControlLine:              1024,
		maxPayload:                  1048576,
		writeDeadline:               2 * time.Second,
		pingInterval:                2 * time.Minute,
		maxPingsOut:                 2,
		enableSlowConsumerDetection: true,
		slowConsumerThreshold:       5 * time.Second,
	}
}

// Validate checks the configuration for obvious mistakes before the server
// is constructed.
func (c *config) Validate() error {
	if c.serviceName == "" {
		return fmt.Errorf("%w: service name is empty", ErrInvalidConfiguration)
	}
	if c.enableJetStream && c.storeDir == "" {
		return fmt.Errorf("%w: JetStream enabled without a store directory", ErrInvalidConfiguration)
	}
	if c.startupTimeout <= 0 {
		return fmt.Errorf("%w: startup timeout must be positive", ErrInvalidConfiguration)
	}
	if c.shutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// ToServerOptions translates the config into NATS server.Options.
func (c *config) ToServerOptions() *server.Options {
	return &server.Options{
		ServerName:             c.serverName,
		DontListen:             c.dontListen,
		JetStream:              c.enableJetStream,
		StoreDir:               c.storeDir,
		JetStreamMaxMemory:     c.maxMemory,
		JetStreamMaxStore:      c.maxStorage,
		MaxConn:                c.maxConnections,
		MaxControlLine:         c.maxControlLine,
		MaxPayload:             c.maxPayload,
		WriteDeadline:          c.writeDeadline,
		PingInterval:           c.pingInterval,
		MaxPingsOut:            c.maxPingsOut,
		NoSigs:                 true,
	}
}
