package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := fromContext(ctx); ok {
		return l
	}
	return zap.NewNop()
}

// WithFallback attaches fallback unless ctx already carries a logger, so a
// request-scoped logger set upstream keeps its fields.
func WithFallback(ctx context.Context, fallback *zap.Logger) context.Context {
	if _, ok := fromContext(ctx); ok || fallback == nil {
		return ctx
	}
	return ContextWithLogger(ctx, fallback)
}

func fromContext(ctx context.Context) (*zap.Logger, bool) {
	l, ok := ctx.Value(ctxKey{}).(*zap.Logger)
	return l, ok && l != nil
}
