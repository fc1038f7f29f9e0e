package helpers

import (
	"context"

	"go.uber.org/zap"
)

type (
	loggerKey struct{}
	bodyKey   struct{}
)

// WithLogger stores the request-scoped logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the request-scoped logger, or the global one.
func GetLogger(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.L()
}

// WithBody stores a decoded and validated request body.
func WithBody[T any](ctx context.Context, body T) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func GetBody[T any](ctx context.Context) (T, bool) {
	body, ok := ctx.Value(bodyKey{}).(T)
	return body, ok
}
