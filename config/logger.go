package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger creates a slog logger writing to w.
func NewLogger(cfg Log, w io.Writer) (*slog.Logger, error) {
	level := slog.LevelInfo
	if cfg.Level == "" {
		cfg.Level = level.String()
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		return nil, fmt.Errorf("invalid log.level %q: %w", cfg.Level, err)
	}
	options := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, options)), nil
	}
	return slog.New(slog.NewTextHandler(w, options)), nil
}
