package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/dto"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/logging"
)

// Recovery converts panics into sanitized 500 envelopes. It sits first in
// the chain so nothing registered after it can crash the process, and the
// panic value goes to the log with its stack, never into the response body.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				handlePanic(c, logger, r)
			}
		}()

		c.Next()
	}
}

func handlePanic(c *gin.Context, logger *slog.Logger, panicValue any) {
	// Recovery runs ahead of the ID middleware so it also catches their
	// panics; the context usually carries no IDs yet.
	ctxLogger := logging.FromContextOr(c.Request.Context(), logger)

	var traceID string
	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		traceID = span.SpanContext().TraceID().String()
	}

	ctxLogger.Error("panic recovered",
		slog.Any("error", panicValue),
		slog.String("stack", string(debug.Stack())),
		slog.String("path", c.Request.URL.Path),
		slog.String("method", c.Request.Method),
		slog.String("trace_id", traceID),
	)

	errResp := dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred")
	if traceID != "" {
		errResp.TraceID = traceID
	}

	// A handler may have started streaming before it panicked; at that
	// point the envelope cannot be sent anymore.
	if c.Writer.Written() {
		c.Abort()
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, errResp)
}
