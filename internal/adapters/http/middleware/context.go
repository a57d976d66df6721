package middleware

import "context"

// contextKey keeps the ID values under keys no other package can collide with.
type contextKey string

const (
	ctxKeyRequestID     contextKey = "request_id"
	ctxKeyCorrelationID contextKey = "correlation_id"
)

// ContextWithRequestID stores a request ID on the context. The RequestID
// middleware does this for every inbound request; delivery jobs and tests set
// it themselves before calling downstream adapters.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// ContextWithCorrelationID stores a correlation ID on the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelationID, id)
}

// RequestIDFromContext returns the stored request ID, or "" when the context
// is nil or carries none. The outbound HTTP client reads it to stamp
// X-Request-ID on calls to downstream services.
func RequestIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, ctxKeyRequestID)
}

// CorrelationIDFromContext returns the stored correlation ID, or "" when the
// context is nil or carries none.
func CorrelationIDFromContext(ctx context.Context) string {
	return idFromContext(ctx, ctxKeyCorrelationID)
}

func idFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(key).(string)

	return id
}
