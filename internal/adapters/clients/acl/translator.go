package acl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients"
	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

// BaseAdapter carries the pieces every provider adapter needs: the
// instrumented HTTP client and the service name that domain errors get
// attributed to. Adapters embed it and build their API on Get, Post, and
// DoRequest.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter binds a client to a service name.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{
		client:      client,
		serviceName: serviceName,
	}
}

// Client exposes the underlying HTTP client, mainly so adapters can read
// circuit breaker state for health checks.
func (a *BaseAdapter) Client() *clients.Client {
	return a.client
}

// ServiceName returns the name this adapter attributes errors to.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// Get requests path and returns the body of a successful response. Any
// failure comes back as a domain error; entityID feeds the not-found case.
func (a *BaseAdapter) Get(ctx context.Context, path, operation, entityID string) (io.ReadCloser, error) {
	resp, err := a.client.Get(ctx, path)

	return a.successBody(resp, err, operation, entityID)
}

// Post sends body to path and returns the response body on success.
func (a *BaseAdapter) Post(ctx context.Context, path string, body io.Reader, operation, entityID string) (io.ReadCloser, error) {
	resp, err := a.client.Post(ctx, path, body)

	return a.successBody(resp, err, operation, entityID)
}

// DoRequest executes a caller-built request, for calls that need headers or
// methods the Get and Post helpers cannot express.
func (a *BaseAdapter) DoRequest(ctx context.Context, req *http.Request, operation, entityID string) (io.ReadCloser, error) {
	resp, err := a.client.Do(ctx, req)

	return a.successBody(resp, err, operation, entityID)
}

// successBody applies the error translation shared by every request helper.
// On 4xx/5xx it drains the mapping out of the response and closes the body;
// on success the caller owns the body.
func (a *BaseAdapter) successBody(resp *http.Response, err error, operation, entityID string) (io.ReadCloser, error) {
	if err != nil {
		return nil, MapHTTPError(nil, err, a.serviceName, operation, entityID)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.serviceName, operation, entityID)
	}

	return resp.Body, nil
}

// DecodeResponse decodes a JSON body into T and closes it.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, fmt.Errorf("response body is nil")
	}
	defer func() { _ = body.Close() }()

	var result T
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

// DecodeResponseForService decodes a JSON body, reporting decode failures as
// the service being unavailable. A 200 wrapping a body the service cannot
// serialize is no more usable than a 503.
func DecodeResponseForService[T any](body io.ReadCloser, serviceName string) (*T, error) {
	result, err := DecodeResponse[T](body)
	if err != nil {
		return nil, domain.NewUnavailableError(serviceName, fmt.Sprintf("invalid response: %v", err))
	}

	return result, nil
}

// ValidateRequired rejects empty required fields with a domain validation
// error named after the field.
func ValidateRequired(value, fieldName string) error {
	if value == "" {
		return domain.NewValidationError(fieldName, "is required")
	}

	return nil
}

// ValidatePositive rejects zero and negative numeric fields.
func ValidatePositive[T ~int | ~int64 | ~float64](value T, fieldName string) error {
	if value <= 0 {
		return domain.NewValidationError(fieldName, "must be positive")
	}

	return nil
}

// Translator converts one upstream DTO into its domain counterpart,
// validating along the way.
type Translator[External any, Domain any] func(ext *External) (*Domain, error)

// TranslateSlice runs a translator over a slice, stopping at the first
// failure and naming the offending index.
func TranslateSlice[E any, D any](items []E, translate Translator[E, D]) ([]*D, error) {
	result := make([]*D, 0, len(items))

	for i := range items {
		translated, err := translate(&items[i])
		if err != nil {
			return nil, fmt.Errorf("translating item %d: %w", i, err)
		}

		result = append(result, translated)
	}

	return result, nil
}

// TranslateMap runs a translator over a map's values, naming the offending
// key on failure.
func TranslateMap[E any, D any](items map[string]E, translate Translator[E, D]) (map[string]*D, error) {
	result := make(map[string]*D, len(items))

	for key, item := range items {
		translated, err := translate(&item)
		if err != nil {
			return nil, fmt.Errorf("translating entry %q: %w", key, err)
		}

		result[key] = translated
	}

	return result, nil
}
