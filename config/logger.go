package config

import (
	"log/slog"
	"os"

	"github.com/spf13/viper"
)

// Logger holds structured logging settings.
type Logger struct {
	Level  string
	Format string
}

func getLogger(v *viper.Viper) *Logger {
	return &Logger{
		Level:  v.GetString("logger.level"),
		Format: v.GetString("logger.format"),
	}
}

// NewLogger builds a slog.Logger from the configured level and format.
// Unknown values fall back to info/json.
func (l *Logger) NewLogger() *slog.Logger {
	var level slog.Level
	switch l.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if l.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
