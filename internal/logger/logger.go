package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Constants for logging levels
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Environments with own log format: text for people, json for collectors
const (
	EnvDevelopment = "dev"
	EnvProduction  = "prod"
)

// Logger interface defines the logging contract
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	With(args ...any) Logger
	WithGroup(name string) Logger
}

// New picks logger format by environment
func New(env string, level string) (Logger, error) {
	switch env {
	case EnvDevelopment, "":
		return NewTextLogger(level)
	case EnvProduction:
		return NewJSONLogger(level)
	default:
		return nil, fmt.Errorf("unknown environment %q", env)
	}
}

// NewTextLogger writes human readable lines to stderr
func NewTextLogger(level string) (Logger, error) {
	return newLogger(os.Stderr, formatText, level)
}

// NewJSONLogger writes one json object per line to stderr
func NewJSONLogger(level string) (Logger, error) {
	return newLogger(os.Stderr, formatJSON, level)
}

// NewNoOpLogger discards everything
func NewNoOpLogger() Logger {
	return &slogLogger{logger: slog.New(slog.DiscardHandler)}
}

type format int

const (
	formatText format = iota
	formatJSON
)

func newLogger(w io.Writer, f format, level string) (Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   true,
		ReplaceAttr: replace,
	}

	var h slog.Handler = slog.NewTextHandler(w, opts)
	if f == formatJSON {
		h = slog.NewJSONHandler(w, opts)
	}

	return &slogLogger{logger: slog.New(h)}, nil
}
