package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns the process logger. LOG_LEVEL selects the level (debug, info,
// warn, error; info when unset). Local environments get text output for
// readability, everything else emits JSON.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level(os.Getenv("LOG_LEVEL")),
	}
	if strings.EqualFold(os.Getenv("ONBOARD_ENV"), "local") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func level(s string) slog.Level {
	switch strings.ToLower(s) {
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
