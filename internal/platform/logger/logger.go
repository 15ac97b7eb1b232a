// Package logger provides structured logging functionality for the
// application.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/nferrell/taskpool-api/internal/config"
)

// Setup initializes the application's logging based on the provided
// configuration. It creates a structured JSON logger with the configured
// log level, sets it as the process default, and returns it.
//
// An unrecognized log level falls back to info with a warning rather than
// failing startup.
func Setup(cfg config.ServerConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo

		tmp := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmp.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
