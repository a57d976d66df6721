package telemetry

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/stoic-reflections/internal/platform/logging"
)

const instrumentationName = "github.com/jsamuelsen/stoic-reflections/telemetry"

// serverMetrics are the inbound-request instruments, one set per process.
type serverMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

func newServerMetrics() (*serverMetrics, error) {
	meter := otel.Meter(instrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &serverMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		activeRequests:  activeRequests,
	}, nil
}

// Middleware records request metrics and surfaces the trace ID: it goes out
// in the X-Trace-ID response header and onto the context logger, so an email
// recipient's support ticket can quote an ID ops can search for. It expects
// TracingMiddleware earlier in the chain to have started the server span.
func Middleware(serviceName string) gin.HandlerFunc {
	// A metric registration failure downgrades to tracing-only rather than
	// taking the request path down.
	metrics, err := newServerMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		span := trace.SpanFromContext(ctx)
		if span.SpanContext().HasTraceID() {
			traceID := span.SpanContext().TraceID().String()
			c.Header("X-Trace-ID", traceID)
			c.Request = c.Request.WithContext(logging.WithTraceID(ctx, traceID))
		}

		if metrics != nil {
			routeAttrs := metric.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
			)

			metrics.activeRequests.Add(ctx, 1, routeAttrs)
			defer metrics.activeRequests.Add(ctx, -1, routeAttrs)
		}

		c.Next()

		if metrics != nil {
			doneAttrs := metric.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
				attribute.Int("http.status_code", c.Writer.Status()),
			)

			metrics.requestDuration.Record(ctx, time.Since(start).Seconds(), doneAttrs)
			metrics.requestTotal.Add(ctx, 1, doneAttrs)
		}
	}
}

// TracingMiddleware starts the server span for each request via otelgin.
// Install it ahead of Middleware.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}
