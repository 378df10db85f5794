// Package logging sets up the engine's one shared slog.Logger: JSON or
// text, to stdout/stderr or a rotated file via lumberjack, matching how
// every service in the corpus sets up its own logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"pywr/internal/config"
)

var Log *slog.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// Init builds the process-wide logger from cfg, replacing the
// placeholder handler Log starts with. Call once, early in main.
func Init(cfg config.LogConfig) {
	var lvl slog.Level
	switch cfg.Level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var writer io.Writer
	switch cfg.Output {
	case "stderr":
		writer = os.Stderr
	case "file":
		path := cfg.FilePath
		if path == "" {
			path = "logs/pywr.log"
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			writer = os.Stdout
		} else {
			writer = &lumberjack.Logger{
				Filename:   path,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}
		}
	default:
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}
	Log = slog.New(handler)
}

// WithComponent scopes a child logger to one subsystem ("schema",
// "simulator", "recorder", ...), the same "name the source, not the
// request" convention the rest of the corpus's loggers use.
func WithComponent(name string) *slog.Logger {
	return Log.With("component", name)
}
