package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

const appName = "attendant"

// New returns the JSON logger used by every binary, tagged with app and env.
func New(appEnv string) *slog.Logger {
	return NewWithWriter(os.Stdout, appEnv)
}

// NewWithWriter is New writing to w.
func NewWithWriter(w io.Writer, appEnv string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelFor(appEnv)})
	return slog.New(h).With("app", appName, "env", appEnv)
}

func levelFor(appEnv string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(appEnv)) {
	case "local", "dev", "development", "test":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
