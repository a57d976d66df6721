package dto

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/logging"
)

// GetTraceID extracts the trace ID for a request. It prefers the trace_id
// value set by the request ID middleware and falls back to the X-Request-ID
// header for requests that bypassed it.
func GetTraceID(c *gin.Context) string {
	if value, exists := c.Get("trace_id"); exists {
		if traceID, ok := value.(string); ok {
			return traceID
		}

		return ""
	}

	return c.Request.Header.Get("X-Request-ID")
}

// MapDomainError maps a domain error to an HTTP status code and error response.
// Dependency failures are reported with sanitized messages; unknown errors are
// mapped to 500 Internal Server Error with a generic message. Details never
// leak storage keys, revisions, or provider internals to callers.
func MapDomainError(err error) (int, *ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		// The request deadline set by the timeout middleware expired before
		// a dependency answered.
		return http.StatusGatewayTimeout, NewErrorResponse(
			ErrorCodeTimeout,
			"the request timed out",
		)

	case domain.IsInvalidDate(err):
		return http.StatusBadRequest, NewErrorResponse(
			ErrorCodeInvalidDate,
			err.Error(),
		)

	case domain.IsValidation(err):
		resp := NewErrorResponse(
			ErrorCodeValidation,
			err.Error(),
		)
		// Extract field details if available
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) && validationErr.Field != "" {
			resp.Error.Details = map[string]string{
				validationErr.Field: validationErr.Message,
			}
		}

		return http.StatusBadRequest, resp

	case domain.IsNotFound(err), domain.IsDayNotFound(err):
		return http.StatusNotFound, NewErrorResponse(
			ErrorCodeNotFound,
			err.Error(),
		)

	case domain.IsConflict(err):
		return http.StatusConflict, NewErrorResponse(
			ErrorCodeConflict,
			err.Error(),
		)

	case domain.IsStaleWrite(err):
		return http.StatusConflict, NewErrorResponse(
			ErrorCodeConflict,
			"the document was modified concurrently, retry the request",
		)

	case domain.IsForbidden(err):
		return http.StatusForbidden, NewErrorResponse(
			ErrorCodeForbidden,
			err.Error(),
		)

	case domain.IsDatasetUnavailable(err):
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeUnavailable,
			"the quote dataset is temporarily unavailable",
		)

	case domain.IsArchiveUnavailable(err), domain.IsArchiveWriteFailed(err):
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeUnavailable,
			"the reflection archive is temporarily unavailable",
		)

	case domain.IsGenerationFailed(err):
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeUnavailable,
			"reflection generation is temporarily unavailable",
		)

	case domain.IsDeliveryFailed(err):
		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeUnavailable,
			"email delivery is temporarily unavailable",
		)

	case domain.IsUnavailable(err):
		message := "the service is temporarily unavailable"

		var unavailableErr *domain.UnavailableError
		if errors.As(err, &unavailableErr) && unavailableErr.Service != "" {
			message = fmt.Sprintf("%s is temporarily unavailable", unavailableErr.Service)
		}

		return http.StatusServiceUnavailable, NewErrorResponse(
			ErrorCodeUnavailable,
			message,
		)

	default:
		// Unknown errors get a generic message to avoid leaking internals.
		// A month missing from the dataset lands here deliberately: a
		// well-formed dataset has all twelve months, so that is corruption,
		// not a caller mistake.
		return http.StatusInternalServerError, NewErrorResponse(
			ErrorCodeInternal,
			"an internal error occurred",
		)
	}
}

// HandleError maps a domain error to an HTTP response and writes it to the
// gin.Context, attaching the request's trace ID. Internal errors are logged
// with full details before the sanitized response goes out.
func HandleError(c *gin.Context, err error) {
	status, errResp := MapDomainError(err)
	if errResp == nil {
		return
	}

	if traceID := GetTraceID(c); traceID != "" {
		errResp.TraceID = traceID
	}

	if status == http.StatusInternalServerError {
		logger := logging.FromContext(c.Request.Context())
		logger.Error("internal error",
			"error", err.Error(),
			"trace_id", errResp.TraceID,
		)
	}

	c.JSON(status, errResp)
}
