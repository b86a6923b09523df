package pool

import (
	"log/slog"

	"jobpool/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultInboxSize is the default buffer of the dispatcher inbox.
const DefaultInboxSize = 1024

// Hooks observe dispatcher events. They run on the dispatcher goroutine and
// must not block or call back into the pool.
type Hooks struct {
	OnFault  func(worker WorkerID, err error)
	OnReject func()
}

// Option configures a Pool.
type Option func(*Config)

// Config holds all configuration options for a pool.
type Config struct {
	InboxSize int
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer
	Hooks     Hooks
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		InboxSize: DefaultInboxSize,
		Logger:    slog.New(slog.DiscardHandler),
		Tracer:    otel.Tracer("jobpool/pool"),
	}
}

// WithInboxSize sets the buffer size of the dispatcher inbox.
func WithInboxSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.InboxSize = size
		}
	}
}

// WithLogger sets the logger used by the dispatcher and the workers.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// WithTracer sets the tracer used for job execution spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) {
		if t != nil {
			c.Tracer = t
		}
	}
}

// WithHooks installs dispatcher event hooks.
func WithHooks(h Hooks) Option {
	return func(c *Config) {
		c.Hooks = h
	}
}
