package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey int

const loggerKey contextKey = iota

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from context, or returns the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}

// withField adds a single string field to the logger in the context.
func withField(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &logger)
}

// withFields adds string fields to the logger in the context.
func withFields(ctx context.Context, fields map[string]string) context.Context {
	logCtx := FromContext(ctx).With()
	for k, v := range fields {
		logCtx = logCtx.Str(k, v)
	}
	logger := logCtx.Logger()
	return WithLogger(ctx, &logger)
}

// WithCategory adds the resource category to the context logger.
func WithCategory(ctx context.Context, category string) context.Context {
	return withField(ctx, "category", category)
}

// WithOperation adds the remote operation name to the context logger.
func WithOperation(ctx context.Context, operation string) context.Context {
	return withField(ctx, "operation", operation)
}

// WithBackend adds the backend kind and base URI to the context logger.
func WithBackend(ctx context.Context, kind, baseURI string) context.Context {
	return withFields(ctx, map[string]string{
		"backend":  kind,
		"base_uri": baseURI,
	})
}
