// Package logging carries a request scoped slog.Logger through the context,
// so the HTTP layer and the booking engines annotate the same logger instead
// of each constructing their own.
package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// ContextWithLogger stores the logger in a derived context. A nil context or
// logger is passed through unchanged.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored by ContextWithLogger, or nil when the
// context does not carry one. Callers fall back to their own logger on nil.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}
