package logger

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// New builds the process-wide structured logger. Output is always JSON;
// local and dev runs get debug level so responder and sweep activity is
// easy to trace.
func New(appEnv string) *slog.Logger {
	level := slog.LevelInfo
	switch appEnv {
	case "local", "dev":
		level = slog.LevelDebug
	}

	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", "campus-sentinel")
}

type ctxKey struct{}

// With attaches a logger to the context; request middleware and the
// background workers use it to carry request- or job-scoped attributes.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the scoped logger stored in ctx, or the process default
// when none was attached.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ShutdownFlush participates in graceful shutdown. The JSON handler
// writes synchronously, so today there is nothing buffered; the hook
// keeps the shutdown ordering explicit should a buffering handler land.
func ShutdownFlush(_ context.Context, _ time.Duration) error { return nil }
