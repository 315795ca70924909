package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/izzypositivetech-001/IzzyCare/internal/config"
)

// New builds the process logger. Dev gets text output with source locations,
// everything else gets JSON. LOG_FILE adds a rotated file next to stdout.
func New(cfg config.Config, service string) *slog.Logger {
	writers := []io.Writer{os.Stdout}
	if cfg.Log.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Log.Level),
		AddSource: cfg.IsDev(),
	}

	w := io.MultiWriter(writers...)

	var h slog.Handler
	format := strings.ToLower(cfg.Log.Format)
	if format == "json" || (format == "" && !cfg.IsDev()) {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return slog.New(h).With(
		slog.String("service", service),
		slog.String("env", cfg.Env),
	)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(s string) slog.Level {
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
