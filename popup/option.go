package popup

import "log/slog"

// Option represents a Manager option
type Option func(m *Manager)

// WithSize sets the popup window size.
func WithSize(width, height int) Option {
	return func(m *Manager) {
		if width > 0 {
			m.width = width
		}
		if height > 0 {
			m.height = height
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCreatedListener registers a callback invoked after a popup window is created.
func WithCreatedListener(listener func(tab *Tab)) Option {
	return func(m *Manager) {
		m.created = listener
	}
}
