// Package logging provides the field-based Logger used across ciscoctl and
// its log/slog backed implementation.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config selects level and handler of the slog logger.
type Config struct {
	Level  string
	Format string // "json" or "text"
	Output io.Writer
}

// New creates a slog backed Logger from cfg. Output defaults to stderr.
func New(cfg Config) *SlogLogger {
	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	return &SlogLogger{logger: slog.New(handler)}
}

// ParseLevel converts a string to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SlogLogger adapts *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// With returns a logger that adds the given component to every record.
func (l *SlogLogger) With(component string) *SlogLogger {
	return &SlogLogger{logger: l.logger.With("component", component)}
}

func (l *SlogLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, attrs(fields)...)
}

func (l *SlogLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, attrs(fields)...)
}

func (l *SlogLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, attrs(fields)...)
}

func (l *SlogLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, attrs(fields)...)
}

func attrs(fields map[string]interface{}) []any {
	args := make([]any, 0, len(fields))
	for key, value := range fields {
		args = append(args, slog.Any(key, value))
	}

	return args
}

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, map[string]interface{}) {}
func (Nop) Info(string, map[string]interface{})  {}
func (Nop) Warn(string, map[string]interface{})  {}
func (Nop) Error(string, map[string]interface{}) {}

// OrNop returns logger, or Nop when logger is nil.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop{}
	}

	return logger
}
