package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// idSpec describes one tracked ID: which header carries it, where it lives
// in the gin context, and how it enriches the request context.
type idSpec struct {
	header string
	ginKey string
	enrich func(ctx context.Context, id string) context.Context
}

// newIDMiddleware is the shared implementation behind RequestID and
// CorrelationID: take the inbound header or mint a UUID, then expose the ID
// everywhere downstream code looks for it.
func newIDMiddleware(spec idSpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(spec.header)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(spec.ginKey, id)
		c.Header(spec.header, id)

		if spec.enrich != nil {
			c.Request = c.Request.WithContext(spec.enrich(c.Request.Context(), id))
		}

		c.Next()
	}
}

// getIDFromContext reads a string ID from the gin context, tolerating
// missing or mistyped values.
func getIDFromContext(c *gin.Context, key string) string {
	if value, exists := c.Get(key); exists {
		if id, ok := value.(string); ok {
			return id
		}
	}

	return ""
}
