package logging

import (
	"context"
	"log/slog"
)

// ctxKey is unexported so only this package can place a logger in a context.
type ctxKey struct{}

var defaultLogger = slog.Default()

// WithContext stores a logger in the context. Middleware does this once per
// request; everything below reads it back through FromContext.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the package default when
// ctx is nil or carries none.
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOr(ctx, defaultLogger)
}

// FromContextOr extracts the logger from context, falling back to the given
// logger when the context carries none. Lets component loggers serve paths
// that run outside a request, like scheduled jobs.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx == nil {
		return fallback
	}

	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}

	return fallback
}

// WithRequestID returns a context whose logger tags every record with the
// request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, "request_id", requestID)
}

// WithCorrelationID returns a context whose logger tags every record with the
// correlation ID carried across service boundaries.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return withField(ctx, "correlation_id", correlationID)
}

// WithTraceID returns a context whose logger tags every record with the
// OpenTelemetry trace ID, linking log lines to spans.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withField(ctx, "trace_id", traceID)
}

func withField(ctx context.Context, key, value string) context.Context {
	return WithContext(ctx, FromContext(ctx).With(slog.String(key, value)))
}

// SetDefault replaces the fallback logger and mirrors it into slog so that
// third-party code logging through slog.Default lands in the same sinks.
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}
