// Package logging owns the process-wide structured logger. Records go to a
// rotating file, never to the terminal the editor draws on.
package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names attached to sub-loggers.
const (
	CompPreview = "preview"
	CompCapture = "capture"
	CompEditor  = "editor"
)

// LogFileName is the file written inside Config.Dir.
const LogFileName = "pipeline.log"

// Config holds logging configuration.
type Config struct {
	// Dir is the directory for log files. Empty disables logging unless
	// Debug is set.
	Dir string

	// Level is the minimum level: "debug", "info", "warn", "error"
	Level string

	// Format is "json" (default) or "text"
	Format string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Debug forces logging on and the level to debug.
	Debug bool
}

var (
	globalLogger *slog.Logger
	globalMu     sync.RWMutex
	lumberjackW  *lumberjack.Logger
)

// Init sets up the global logger. defaultDir is used when Debug is set
// without a directory.
func Init(cfg Config, defaultDir string) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 14
	}

	level := ParseLevel(cfg.Level)
	if cfg.Debug {
		level = slog.LevelDebug
		if cfg.Dir == "" {
			cfg.Dir = defaultDir
		}
	}

	if cfg.Dir == "" {
		globalLogger = slog.New(slog.DiscardHandler)
		return
	}

	closeWriter()
	lumberjackW = &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, LogFileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	globalLogger = slog.New(newHandler(lumberjackW, cfg.Format, level))
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel maps a level name to a slog level. Unknown names are info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Logger returns the global logger. Safe to call before Init.
func Logger() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return globalLogger
}

// ForComponent returns a sub-logger with the component field set.
func ForComponent(name string) *slog.Logger {
	return Logger().With(slog.String("component", name))
}

// Shutdown closes the log file.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()
	closeWriter()
	globalLogger = nil
}

func closeWriter() {
	if lumberjackW != nil {
		_ = lumberjackW.Close()
		lumberjackW = nil
	}
}
