// Package clients implements the resilient HTTP client the service uses for
// outbound calls, primarily the Messages API behind the reflection generator.
// The client layers retries with jittered backoff, a circuit breaker, ID
// propagation, and OpenTelemetry instrumentation over net/http.
package clients

import "errors"

// Sentinel errors for transport-level failures. Callers such as the
// generation adapter translate these into domain errors; they never reach
// an HTTP response directly.
var (
	// ErrCircuitOpen signals that the breaker is rejecting calls because the
	// downstream has been failing.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded signals that every configured attempt failed.
	// The last underlying error is attached to it.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
