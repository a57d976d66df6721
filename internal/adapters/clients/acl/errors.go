package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients"
	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

// ErrorResponse is the error envelope a provider returns alongside a non-2xx
// status. The Messages API nests everything under "error"; the flat code and
// message fields cover gateways and stubs that answer in the plainer shape.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorDetail is the nested error object. The Messages API identifies errors
// by "type" (invalid_request_error, overloaded_error, ...); "code" and
// "details" appear in the envelopes other upstreams use.
type ErrorDetail struct {
	Type    string            `json:"type,omitempty"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// GetCode returns the most specific error identifier present: the nested
// code, then the nested type, then the top-level code.
func (e *ErrorResponse) GetCode() string {
	if e.Error.Code != "" {
		return e.Error.Code
	}

	if e.Error.Type != "" {
		return e.Error.Type
	}

	return e.Code
}

// GetMessage returns the nested message when present, the top-level one
// otherwise.
func (e *ErrorResponse) GetMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}

	return e.Message
}

// Error codes upstreams put in response bodies, for callers that dispatch on
// the body rather than the status line.
const (
	ExternalCodeNotFound     = "NOT_FOUND"
	ExternalCodeConflict     = "CONFLICT"
	ExternalCodeValidation   = "VALIDATION_ERROR"
	ExternalCodeForbidden    = "FORBIDDEN"
	ExternalCodeUnauthorized = "UNAUTHORIZED"
)

// ParseErrorResponse decodes an error body. Returns nil when the body is
// absent, is not JSON, or decodes to an envelope with nothing in it; callers
// then fall back to status-line messages. HTML error pages from intermediate
// proxies land on the nil path too.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	var envelope ErrorResponse
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil
	}

	if envelope.GetCode() == "" && envelope.GetMessage() == "" {
		return nil
	}

	return &envelope
}

// MapHTTPError turns a failed upstream call into a domain error. Exactly one
// of resp and clientErr is normally set: clientErr covers transport failures
// and the client's own circuit breaker and retry sentinels, resp covers
// non-2xx answers. entityID rides along into not-found errors so callers can
// report which resource the upstream was missing.
func MapHTTPError(resp *http.Response, clientErr error, serviceName, operation, entityID string) error {
	if clientErr != nil {
		return transportToDomain(clientErr, serviceName, operation)
	}

	if resp == nil {
		return domain.NewUnavailableError(serviceName, "no response received")
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	var envelope *ErrorResponse
	if resp.Body != nil {
		envelope = ParseErrorResponse(resp.Body)
	}

	return statusToDomain(resp.StatusCode, envelope, serviceName, operation, entityID)
}

// transportToDomain folds client-level failures into unavailability. By the
// time the circuit is open or retries are spent, the distinction no longer
// matters to the caller; the operation string keeps it diagnosable.
func transportToDomain(err error, serviceName, operation string) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("circuit breaker open during %s", operation))

	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("max retries exceeded during %s", operation))

	default:
		return domain.NewUnavailableError(serviceName,
			fmt.Sprintf("%s failed: %v", operation, err))
	}
}

// statusToDomain picks the domain error for a status code, preferring the
// upstream's own message over the canned one when the envelope carries it.
func statusToDomain(status int, envelope *ErrorResponse, serviceName, operation, entityID string) error {
	message := fallbackMessage(status, operation)
	if envelope != nil && envelope.GetMessage() != "" {
		message = envelope.GetMessage()
	}

	switch status {
	case http.StatusNotFound:
		return domain.NewNotFoundError(serviceName, entityID)

	case http.StatusConflict:
		return domain.NewConflictError(serviceName, message)

	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if envelope != nil {
			// Surface the first field the upstream named.
			for field, msg := range envelope.Error.Details {
				return domain.NewValidationError(field, msg)
			}
		}

		return domain.NewValidationError("", message)

	case http.StatusForbidden:
		return domain.NewForbiddenError(operation, message)

	case http.StatusUnauthorized:
		return domain.NewForbiddenError(operation, "authentication required")

	case http.StatusTooManyRequests:
		return domain.NewUnavailableError(serviceName, "rate limit exceeded")

	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return domain.NewUnavailableError(serviceName, message)

	default:
		// 529 lands here: the Messages API signals overload outside the
		// registered status ranges.
		if status >= http.StatusInternalServerError {
			return domain.NewUnavailableError(serviceName, message)
		}

		return domain.NewValidationError("", message)
	}
}

// fallbackMessage is used when the upstream sent no usable error body.
func fallbackMessage(status int, operation string) string {
	switch status {
	case http.StatusNotFound:
		return "resource not found"
	case http.StatusConflict:
		return "resource conflict"
	case http.StatusBadRequest:
		return "invalid request"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusUnauthorized:
		return "authentication required"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	default:
		return fmt.Sprintf("%s failed with status %d", operation, status)
	}
}

// MapExternalCode dispatches on a body-level error code instead of the HTTP
// status, for upstreams that bury the real failure inside a 200.
func MapExternalCode(code, message, serviceName, operation, entityID string) error {
	switch code {
	case ExternalCodeNotFound:
		return domain.NewNotFoundError(serviceName, entityID)
	case ExternalCodeConflict:
		return domain.NewConflictError(serviceName, message)
	case ExternalCodeValidation:
		return domain.NewValidationError("", message)
	case ExternalCodeForbidden:
		return domain.NewForbiddenError(operation, message)
	case ExternalCodeUnauthorized:
		return domain.NewForbiddenError(operation, "authentication required")
	default:
		return domain.NewUnavailableError(serviceName, message)
	}
}
