package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/stoic-reflections/internal/platform/logging"
)

const (
	// HeaderCorrelationID carries the cross-service transaction ID. A
	// request ID names one hop; the correlation ID follows the whole
	// transaction from the gateway through this service to its upstreams.
	HeaderCorrelationID = "X-Correlation-ID"

	// ContextKeyCorrelationID is the gin context key for the correlation ID.
	ContextKeyCorrelationID = "correlation_id"
)

// CorrelationID propagates the caller's X-Correlation-ID, minting one when
// this service is the transaction origin. Like the request ID it lands in
// the gin context, the response headers, and the context logger.
func CorrelationID() gin.HandlerFunc {
	return newIDMiddleware(idSpec{
		header: HeaderCorrelationID,
		ginKey: ContextKeyCorrelationID,
		// Store the raw ID for the outbound client and attach it to the
		// context logger.
		enrich: func(ctx context.Context, id string) context.Context {
			return ContextWithCorrelationID(logging.WithCorrelationID(ctx, id), id)
		},
	})
}

// GetCorrelationID returns the correlation ID, or "" outside the middleware
// chain.
func GetCorrelationID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyCorrelationID)
}

// MustGetCorrelationID returns the correlation ID, panicking when it is
// absent. Only call it on routes behind CorrelationID().
func MustGetCorrelationID(c *gin.Context) string {
	id := GetCorrelationID(c)
	if id == "" {
		panic("correlation id missing: CorrelationID middleware not installed")
	}

	return id
}
