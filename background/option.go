package background

import (
	"log/slog"
	"time"

	"github.com/viant/authbridge/idgen"
	"github.com/viant/authbridge/popup"
	"go.opentelemetry.io/otel/trace"
)

// Option represents a Coordinator option
type Option func(c *Coordinator)

// WithTimeout sets how long a request waits for the user; zero waits indefinitely.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = metrics
	}
}

// WithIDGenerator sets the auth id generator.
func WithIDGenerator(ids idgen.Generator) Option {
	return func(c *Coordinator) {
		if ids != nil {
			c.ids = ids
		}
	}
}

// WithTabEvents aborts pending requests when their popup is closed or navigates away.
func WithTabEvents(events popup.TabEvents) Option {
	return func(c *Coordinator) {
		c.events = events
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithClock sets the time source for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}
