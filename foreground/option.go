package foreground

import (
	"log/slog"
	"time"
)

// Option represents a Queue option
type Option func(q *Queue)

// WithStore sets the request store; the default keeps requests in memory.
func WithStore(store Store) Option {
	return func(q *Queue) {
		if store != nil {
			q.store = store
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithClock sets the time source for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithChangeListener registers fn to run after every successful queue change.
func WithChangeListener(fn func()) Option {
	return func(q *Queue) {
		q.changed = fn
	}
}
