package logger

import (
	"log/slog"
	"os"
)

// Init sets up the global logger with a JSON handler.
// Development environments log at debug level.
func Init(environment string) *slog.Logger {
	level := slog.LevelInfo
	if environment == "development" {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}
