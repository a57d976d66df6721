// Package middleware provides the Gin middleware chain: panic recovery,
// request and correlation IDs, request logging, CORS, timeouts, and the
// gateway-claims auth that guards the operator routes.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/stoic-reflections/internal/platform/logging"
)

const (
	// HeaderRequestID carries the per-request ID.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the gin context key for the request ID.
	ContextKeyRequestID = "request_id"
)

// RequestID assigns every request an ID: the caller's X-Request-ID when
// present, a fresh UUID otherwise. The ID lands in the gin context, the
// response headers, and the context logger, and the outbound client forwards
// it to upstreams.
func RequestID() gin.HandlerFunc {
	return newIDMiddleware(idSpec{
		header: HeaderRequestID,
		ginKey: ContextKeyRequestID,
		// Store the raw ID for the outbound client and attach it to the
		// context logger.
		enrich: func(ctx context.Context, id string) context.Context {
			return ContextWithRequestID(logging.WithRequestID(ctx, id), id)
		},
	})
}

// GetRequestID returns the request ID, or "" outside the middleware chain.
func GetRequestID(c *gin.Context) string {
	return getIDFromContext(c, ContextKeyRequestID)
}

// MustGetRequestID returns the request ID, panicking when it is absent. Only
// call it on routes behind RequestID().
func MustGetRequestID(c *gin.Context) string {
	id := GetRequestID(c)
	if id == "" {
		panic("request id missing: RequestID middleware not installed")
	}

	return id
}
