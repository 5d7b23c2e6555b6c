package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is the minimal logging interface shared across layers. Reconciliation
// code logs per-unit outcomes through it; commands pick the concrete handler.
type Logger interface {
	Debug(msg string, kv ...any)
	Debugf(format string, args ...any)
	Info(msg string, kv ...any)
	Infof(format string, args ...any)
	Warn(msg string, kv ...any)
	Warnf(format string, args ...any)
	Error(msg string, kv ...any)
	Errorf(format string, args ...any)
	With(kv ...any) Logger
}

type contextKey struct{}

var loggerKey contextKey

// WithLogger stores a logger in context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext retrieves a logger from context, returning a default stderr
// logger when none was attached.
func FromContext(ctx context.Context) Logger {
	if v, ok := ctx.Value(loggerKey).(Logger); ok && v != nil {
		return v
	}
	return NewNop(slog.LevelInfo)
}

// New constructs a Logger of the given format (human|text|json) writing to stderr.
func New(format string, level slog.Leveler) (Logger, error) {
	return NewWithWriter(format, level, os.Stderr)
}

// NewWithWriter constructs a Logger of the given format, level, and writer.
func NewWithWriter(format string, level slog.Leveler, w io.Writer) (Logger, error) {
	switch format {
	case "", "human":
		return &slogWrapper{logger: slog.New(newHumanHandler(w, level))}, nil
	case "text":
		return &slogWrapper{logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}, nil
	case "json":
		return &slogWrapper{logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))}, nil
	default:
		return nil, errors.New("unsupported log format: " + format)
	}
}

// NewNop returns a logger that discards everything. Used as the fallback when
// no logger was wired, so library code never has to nil-check.
func NewNop(level slog.Leveler) Logger {
	return &slogWrapper{logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level}))}
}

// newHumanHandler is a text handler without the timestamp attribute; the CLI is
// usually run under CI, which stamps lines itself.
func newHumanHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
}

type slogWrapper struct{ logger *slog.Logger }

func (l *slogWrapper) Debug(msg string, kv ...any) { l.logger.Debug(msg, kv...) }
func (l *slogWrapper) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
func (l *slogWrapper) Info(msg string, kv ...any) { l.logger.Info(msg, kv...) }
func (l *slogWrapper) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}
func (l *slogWrapper) Warn(msg string, kv ...any) { l.logger.Warn(msg, kv...) }
func (l *slogWrapper) Warnf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
func (l *slogWrapper) Error(msg string, kv ...any) { l.logger.Error(msg, kv...) }
func (l *slogWrapper) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *slogWrapper) With(kv ...any) Logger { return &slogWrapper{logger: l.logger.With(kv...)} }
