package app

import (
	"io"
	"log/slog"
)

// newLogger builds an isolated slog.Logger for one App instance. The global
// default logger is left untouched so embedding tests can run in parallel.
func newLogger(level, format string, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// parseLevel maps a -log-level flag value to a slog level. Unrecognized
// values fall back to info rather than failing startup.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
