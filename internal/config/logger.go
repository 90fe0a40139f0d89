package config

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the process logger. Level "silent" or "off" discards
// everything; an unknown level falls back to info.
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "silent" || level == "off" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
