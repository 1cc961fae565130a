// Package logging wraps zerolog with the constructors and context helpers
// used across dblog.
//
// Logger embeds zerolog.Logger, so the full zerolog API (Debug, Info, Warn,
// Error, ...) is available on *Logger. Components receive a *Logger at
// construction time and derive children with Child.
package logging

import (
	"context"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

func init() {
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return runtime.FuncForPC(pc).Name()
	}
	zerolog.CallerFieldName = "func"
}

// New builds a JSON logger on stdout tagged with role. level is parsed with
// ParseLevel; unknown levels fall back to info.
func New(role, level string) *Logger {
	return NewWithWriter(os.Stdout, role, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, role, level string) *Logger {
	logger := zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Str("role", role).
		Timestamp().
		Caller().
		Logger()

	return &Logger{logger}
}

// NewConsole builds a human-readable logger for CLI use.
func NewConsole(role, level string) *Logger {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	logger := zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Str("role", role).
		Timestamp().
		Logger()

	return &Logger{logger}
}

// Nop returns a *Logger that discards all output. Intended for tests.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// ParseLevel maps a config string onto a zerolog level.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Child returns a logger that carries an extra component field.
func (l *Logger) Child(component string) *Logger {
	return &Logger{l.With().Str("component", component).Logger()}
}

// WithContext attaches l to ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// FromContext returns the logger stored in ctx. When none was attached it
// returns a disabled logger, never nil.
func FromContext(ctx context.Context) *Logger {
	logger := zerolog.Ctx(ctx)
	if logger == nil || logger.GetLevel() == zerolog.Disabled {
		return Nop()
	}
	return &Logger{*logger}
}
