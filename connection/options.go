package connection

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/brokerconn/telemetry"
)

// DefaultCloseTimeout bounds how long Destroy waits for the transport to close.
const DefaultCloseTimeout = 30 * time.Second

// Option configures a Factory.
type Option func(*Factory)

// WithName labels the factory in logs and metrics.
func WithName(name string) Option {
	return func(f *Factory) {
		if name != "" {
			f.name = name
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithTelemetry sets the collector notified of lifecycle events.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(f *Factory) {
		if collector != nil {
			f.collector = collector
		}
	}
}

// WithCloseTimeout bounds transport close calls. Non-positive values keep the default.
func WithCloseTimeout(timeout time.Duration) Option {
	return func(f *Factory) {
		if timeout > 0 {
			f.closeTimeout = timeout
		}
	}
}

// WithOpenTimeout bounds each transport open call. Zero leaves the caller's
// context untouched.
func WithOpenTimeout(timeout time.Duration) Option {
	return func(f *Factory) {
		if timeout > 0 {
			f.openTimeout = timeout
		}
	}
}

// WithExecutor passes exec to the transport on every open.
func WithExecutor(exec Executor) Option {
	return func(f *Factory) {
		f.executor = exec
	}
}

// WithListeners registers the initial listeners.
func WithListeners(listeners ...Listener) Option {
	return func(f *Factory) {
		f.listeners.replace(listeners)
	}
}
