package logger

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// L is the process-wide structured logger. InitLogger must run once at
// startup, right after configuration is loaded.
var L *slog.Logger

func InitLogger(logLevelStr string) {
	level, recognized := parseLevel(logLevelStr)

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// RFC3339 timestamps keep the JSON logs machine-friendly.
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}

	L = slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(L)

	if !recognized {
		L.Warn("Invalid LOG_LEVEL specified, defaulting to INFO", "configuredLevel", logLevelStr)
	}
	L.Info("Logger initialized", "level", level.String())
}

func parseLevel(logLevelStr string) (slog.Level, bool) {
	switch strings.ToLower(logLevelStr) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
