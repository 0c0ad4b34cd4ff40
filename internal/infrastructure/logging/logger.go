package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/config"
)

// serviceName is attached to every log entry.
const serviceName = "graylogic-iot"

// Logger is the structured logger shared by the device link packages.
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger writing to the destination named by cfg.Output
// ("stdout", "stderr" or "discard").
func New(cfg config.LoggingConfig, version string) *Logger {
	var w io.Writer = os.Stdout
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		w = os.Stderr
	case "discard":
		w = io.Discard
	}
	return NewWithWriter(cfg, version, w)
}

// NewWithWriter builds a Logger writing to w. cfg.Output is ignored.
//
// Every entry carries the service name and version. Debug level also
// records the source location, which is what topic tracing needs.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(h).With(
		slog.String("service", serviceName),
		slog.String("version", version),
	)}
}

// parseLevel maps debug, info, warn (or warning) and error to a level.
// Anything else is info.
func parseLevel(name string) slog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil || name == "" {
		return slog.LevelInfo
	}
	return level
}

// With returns a child Logger carrying args on every entry.
//
//	twinLog := logger.With("component", "twin")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the logger used before the configuration has been read: JSON
// to stderr at info level, so stdout stays clean for command output.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stderr"}, "dev")
}
