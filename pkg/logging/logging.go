// Package logging configures structured logging for the bridge binaries.
//
// Usage:
//
//	logging.Setup(os.Stderr, "info", "")      // colored tint output
//	logging.Setup(os.Stderr, "debug", "json") // JSON output for supervisors
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the process-wide slog logger writing to w and returns it.
// Format "json" selects the JSON handler; anything else gets the colored
// tint handler. Level is one of debug, info, warn, error (default info).
func Setup(w io.Writer, level, format string) *slog.Logger {
	lv := ParseLevel(level)

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})
	} else {
		h = tint.NewHandler(w, &tint.Options{
			Level:      lv,
			TimeFormat: time.Kitchen,
		})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
