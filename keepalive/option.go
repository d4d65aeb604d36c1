package keepalive

import (
	"log/slog"
	"time"
)

// Option represents a Supervisor option
type Option func(s *Supervisor)

// WithInterval sets the wake event cadence.
func WithInterval(interval time.Duration) Option {
	return func(s *Supervisor) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithAlarmName sets the alarm name.
func WithAlarmName(name string) Option {
	return func(s *Supervisor) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logger
		}
	}
}
