// Package logging adapts zerolog to cloud.Logger.
package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// Logger writes cloud.Logger entries through a zerolog.Logger.
type Logger struct {
	zl zerolog.Logger
}

var _ cloud.Logger = (*Logger)(nil)

// NewZerolog wraps an existing zerolog logger.
func NewZerolog(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl}
}

// New returns a JSON logger writing to w at level ("debug", "info", "warn"
// or "error"). An unknown level falls back to info.
func New(w io.Writer, level string) *Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	return &Logger{zl: zerolog.New(w).Level(parsed).With().Timestamp().Str("component", "cloudsdk").Logger()}
}

// NewConsole returns a human-readable logger for terminals.
func NewConsole(w io.Writer, level string) *Logger {
	return New(zerolog.ConsoleWriter{Out: w, NoColor: true}, level)
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Zerolog returns the wrapped logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

// Debug implements cloud.Logger.
func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

// Info implements cloud.Logger.
func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

// Warn implements cloud.Logger.
func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

// Error implements cloud.Logger.
func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.zl.Error().Fields(fields).Msg(msg)
}
