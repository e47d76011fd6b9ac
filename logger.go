package propstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Logger defines an interface for logging operations.
// Implementations should be safe for concurrent use.
type Logger interface {
	// Info logs informational messages
	Info(ctx context.Context, format string, args ...interface{})

	// Warn logs warning messages
	Warn(ctx context.Context, format string, args ...interface{})

	// Error logs error messages
	Error(ctx context.Context, format string, args ...interface{})

	// Debug logs debug messages
	Debug(ctx context.Context, format string, args ...interface{})
}

// noopLogger is a Logger that does nothing.
type noopLogger struct{}

func (noopLogger) Info(ctx context.Context, format string, args ...interface{})  {}
func (noopLogger) Warn(ctx context.Context, format string, args ...interface{})  {}
func (noopLogger) Error(ctx context.Context, format string, args ...interface{}) {}
func (noopLogger) Debug(ctx context.Context, format string, args ...interface{}) {}

var defaultLogger Logger = noopLogger{}

// zerologLogger adapts a zerolog.Logger. A logger attached to ctx with
// zerolog's WithContext takes precedence over the wrapped one.
type zerologLogger struct {
	base zerolog.Logger
}

// NewZerologLogger returns a Logger that writes through l.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLogger{base: l}
}

func (z *zerologLogger) logger(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &z.base
}

func (z *zerologLogger) Info(ctx context.Context, format string, args ...interface{}) {
	z.logger(ctx).Info().Str("component", "propstore").Msg(fmt.Sprintf(format, args...))
}

func (z *zerologLogger) Warn(ctx context.Context, format string, args ...interface{}) {
	z.logger(ctx).Warn().Str("component", "propstore").Msg(fmt.Sprintf(format, args...))
}

func (z *zerologLogger) Error(ctx context.Context, format string, args ...interface{}) {
	z.logger(ctx).Error().Str("component", "propstore").Msg(fmt.Sprintf(format, args...))
}

func (z *zerologLogger) Debug(ctx context.Context, format string, args ...interface{}) {
	z.logger(ctx).Debug().Str("component", "propstore").Msg(fmt.Sprintf(format, args...))
}
