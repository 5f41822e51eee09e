// Package log sets up the process-wide slog logger for protofito binaries.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the global logger.
type Options struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string

	// Format is "text" or "json". Empty selects json when GO_ENV is
	// "production" and text otherwise.
	Format string

	// Output defaults to stdout.
	Output io.Writer
}

var (
	logger *slog.Logger
	once   sync.Once
)

// ParseLevel maps a level name to a slog level.
// Unknown names fall back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// New builds a logger from opts without touching the global one.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	format := strings.ToLower(opts.Format)
	if format == "" && os.Getenv("GO_ENV") == "production" {
		format = FormatJSON
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(out, handlerOpts))
}

// Setup installs the global logger and makes it slog's default.
// Only the first call has an effect.
func Setup(opts Options) {
	once.Do(func() {
		logger = New(opts)
		slog.SetDefault(logger)
	})
}

// Init is Setup with only a level.
func Init(level string) {
	Setup(Options{Level: level})
}

// L returns the global logger, initializing it at info level if needed.
func L() *slog.Logger {
	Init("info")
	return logger
}
