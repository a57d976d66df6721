package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/middleware"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/config"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/logging"
)

// instrumentationName keys the tracer and meter for this package.
const instrumentationName = "github.com/jsamuelsen/stoic-reflections/internal/adapters/clients"

const (
	// defaultTimeout bounds a single attempt when the config does not.
	defaultTimeout = 30 * time.Second

	// Transport defaults, applied when the config leaves them zero.
	transportMaxIdleConns        = 100
	transportMaxIdleConnsPerHost = 10
	transportIdleConnTimeout     = 90 * time.Second
)

const (
	// backoffJitter spreads each wait by ±25% so callers that failed
	// together do not retry together.
	backoffJitter = 0.25

	// jitterSpan maps rand's [0,1) onto [-1,1).
	jitterSpan = 2
)

// Config describes one upstream the service calls over HTTP.
type Config struct {
	// BaseURL is the upstream root, e.g. "https://api.anthropic.com".
	BaseURL string

	// ServiceName names the upstream in logs, spans, and metrics. Required.
	ServiceName string

	// Timeout bounds each individual attempt. Wall-clock time for a call
	// can exceed it once retries and backoff are added on top.
	Timeout time.Duration

	// Retry tunes the attempt count and backoff curve.
	Retry config.RetryConfig

	// Circuit tunes the circuit breaker in front of the upstream.
	Circuit config.CircuitBreakerConfig

	// Transport tunes connection pooling. Zero values take the package
	// defaults.
	Transport config.TransportConfig

	// AuthFunc decorates every attempt with credentials, retries included,
	// so a rotated key is picked up mid-call.
	AuthFunc func(*http.Request)

	// Logger defaults to slog.Default when nil.
	Logger *slog.Logger
}

// Client is the outbound HTTP client every upstream adapter builds on. One
// Client fronts one upstream and carries the full reliability stack for it:
// jittered exponential retry, a circuit breaker, OpenTelemetry spans and
// metrics, request and correlation ID propagation, and structured logs.
type Client struct {
	http        *http.Client
	baseURL     string
	serviceName string
	cfg         *Config
	logger      *slog.Logger
	cb          *CircuitBreaker

	tracer trace.Tracer
	meter  metric.Meter

	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// New builds a Client for one upstream.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("component", "clients.Client"),
		slog.String("downstream", cfg.ServiceName),
	)

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:   cfg.Circuit.MaxFailures,
		Timeout:       cfg.Circuit.Timeout,
		HalfOpenLimit: cfg.Circuit.HalfOpenLimit,
	})

	// Breaker transitions are the first sign an upstream is in trouble.
	cb.OnStateChange(func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	requestTotal, err := meter.Int64Counter(
		"http.client.request.total",
		metric.WithDescription("Total number of HTTP client requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(cfg.Transport),
		},
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceName:     cfg.ServiceName,
		cfg:             cfg,
		logger:          logger,
		cb:              cb,
		tracer:          otel.Tracer(instrumentationName),
		meter:           meter,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
	}, nil
}

// newTransport builds the pooled transport, filling zero config fields with
// the package defaults.
func newTransport(cfg config.TransportConfig) *http.Transport {
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = transportMaxIdleConns
	}

	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = transportMaxIdleConnsPerHost
	}

	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = transportIdleConnTimeout
	}

	return &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
}

// Do sends req with the full reliability stack: circuit breaking, retries
// with jittered backoff, tracing, metrics, and ID propagation.
//
// Bodyless requests (GET, DELETE) always retry safely. The first attempt
// consumes a POST or PUT body, so retried writes need req.GetBody set;
// without it, cap Retry.MaxAttempts at 1 for the upstream.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("downstream", c.serviceName),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.cb.Allow() {
		c.observeRequest(ctx, req.Method, 0, time.Since(start), "circuit_open")
		logger.Warn("request blocked by circuit breaker")

		return nil, ErrCircuitOpen
	}

	c.injectHeaders(ctx, req)

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("HTTP %s %s", req.Method, c.serviceName),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.serviceName),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.sendWithRetries(ctx, req, logger, start)

	return c.finish(ctx, req, resp, err, span, logger, start)
}

// sendWithRetries runs the attempt loop. It returns the first success, the
// first non-retryable error, or the last error once attempts run out.
func (c *Client) sendWithRetries(ctx context.Context, req *http.Request, logger *slog.Logger, start time.Time) (*http.Response, error) {
	var lastErr error

	for attempt := range c.cfg.Retry.MaxAttempts {
		if attempt > 0 {
			if err := c.sleepBeforeRetry(ctx, req, attempt, logger, start); err != nil {
				return nil, err
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))

		switch {
		case err != nil && isRetryableError(err):
			logger.Debug("attempt failed with retryable error",
				slog.Int("attempt", attempt+1),
				slog.Any("error", err),
			)

			lastErr = err

		case err != nil:
			return nil, err

		case resp.StatusCode >= http.StatusInternalServerError:
			logger.Debug("attempt got a server error",
				slog.Int("attempt", attempt+1),
				slog.Int("status", resp.StatusCode),
			)

			// Drop the failed body so the pooled connection can be reused.
			if closeErr := resp.Body.Close(); closeErr != nil {
				logger.Debug("closing failed response body", slog.Any("error", closeErr))
			}

			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)

		default:
			return resp, nil
		}
	}

	return nil, lastErr
}

// sleepBeforeRetry waits out the backoff for the coming attempt, then
// refreshes credentials in case they rotated during the wait.
func (c *Client) sleepBeforeRetry(ctx context.Context, req *http.Request, attempt int, logger *slog.Logger, start time.Time) error {
	backoff := c.calculateBackoff(attempt)
	logger.Debug("retrying request",
		slog.Int("attempt", attempt+1),
		slog.Duration("backoff", backoff),
	)

	select {
	case <-ctx.Done():
		c.cb.RecordFailure()
		c.observeRequest(ctx, req.Method, 0, time.Since(start), "context_canceled")

		return ctx.Err()
	case <-time.After(backoff):
	}

	if c.cfg.AuthFunc != nil {
		c.cfg.AuthFunc(req)
	}

	return nil
}

// finish settles the call: it feeds the circuit breaker, closes out the span
// and metrics, and wraps any failure in ErrMaxRetriesExceeded.
func (c *Client) finish(ctx context.Context, req *http.Request, resp *http.Response, lastErr error, span trace.Span, logger *slog.Logger, start time.Time) (*http.Response, error) {
	duration := time.Since(start)

	if lastErr != nil {
		c.cb.RecordFailure()
		span.SetStatus(codes.Error, lastErr.Error())
		c.observeRequest(ctx, req.Method, 0, duration, "error")
		logger.Error("request failed",
			slog.Duration("duration", duration),
			slog.Any("error", lastErr),
		)

		return nil, fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
	}

	c.cb.RecordSuccess()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	c.observeRequest(ctx, req.Method, resp.StatusCode, duration, statusClass(resp.StatusCode))

	logger.Debug("request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)

	return resp, nil
}

// Get issues a GET against path.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return c.Do(ctx, req)
}

// Post issues a JSON POST against path.
func (c *Client) Post(ctx context.Context, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.Do(ctx, req)
}

// Put issues a JSON PUT against path.
func (c *Client) Put(ctx context.Context, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.buildURL(path), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.Do(ctx, req)
}

// Delete issues a DELETE against path.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.buildURL(path), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return c.Do(ctx, req)
}

// CircuitState exposes the breaker state for health reporting.
func (c *Client) CircuitState() State {
	return c.cb.State()
}

// injectHeaders forwards the request and correlation IDs from ctx and applies
// credentials, so an upstream call can be tied back to the inbound request
// that caused it.
func (c *Client) injectHeaders(ctx context.Context, req *http.Request) {
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}

	if correlationID := middleware.CorrelationIDFromContext(ctx); correlationID != "" {
		req.Header.Set(middleware.HeaderCorrelationID, correlationID)
	}

	if c.cfg.AuthFunc != nil {
		c.cfg.AuthFunc(req)
	}
}

func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// calculateBackoff returns the wait before retry number attempt+1:
// exponential growth capped at MaxInterval, jittered by ±25%.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	wait := float64(c.cfg.Retry.InitialInterval) * math.Pow(c.cfg.Retry.Multiplier, float64(attempt))
	wait = math.Min(wait, float64(c.cfg.Retry.MaxInterval))

	spread := rand.Float64()*jitterSpan - 1 //nolint:gosec // retry jitter does not need crypto randomness
	wait += wait * backoffJitter * spread

	return time.Duration(wait)
}

// observeRequest feeds the duration histogram and request counter.
func (c *Client) observeRequest(ctx context.Context, method string, statusCode int, duration time.Duration, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.serviceName),
		attribute.String("result", result),
	}

	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	c.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	c.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// statusClass collapses a status code to its class ("2xx", "5xx") for
// low-cardinality metric labels.
func statusClass(code int) string {
	const classWidth = 100

	return fmt.Sprintf("%dxx", code/classWidth)
}

// isRetryableError reports whether another attempt could plausibly succeed.
// Context cancellation never retries; network timeouts and connection-level
// failures (refused, reset) do.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
