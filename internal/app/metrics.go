package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instrumentationName is used for the OpenTelemetry meter.
const instrumentationName = "github.com/jsamuelsen/stoic-reflections/internal/app"

// DeliveryMetrics records delivery run outcomes. A nil receiver records
// nothing, which keeps tests free of meter setup.
type DeliveryMetrics struct {
	runTotal    metric.Int64Counter
	runDuration metric.Float64Histogram
	emailTotal  metric.Int64Counter
}

// NewDeliveryMetrics creates the delivery instruments on the global meter
// provider.
func NewDeliveryMetrics() (*DeliveryMetrics, error) {
	meter := otel.Meter(instrumentationName)

	runTotal, err := meter.Int64Counter(
		"reflection.delivery.run.total",
		metric.WithDescription("Total number of daily delivery runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram(
		"reflection.delivery.run.duration",
		metric.WithDescription("Duration of daily delivery runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	emailTotal, err := meter.Int64Counter(
		"reflection.delivery.email.total",
		metric.WithDescription("Total number of reflection emails attempted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating email counter: %w", err)
	}

	return &DeliveryMetrics{
		runTotal:    runTotal,
		runDuration: runDuration,
		emailTotal:  emailTotal,
	}, nil
}

// ObserveRun records one completed delivery run.
func (m *DeliveryMetrics) ObserveRun(ctx context.Context, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}

	attrs := metric.WithAttributes(attribute.String("status", status))
	m.runTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// ObserveEmails records attempted deliveries by outcome.
func (m *DeliveryMetrics) ObserveEmails(ctx context.Context, sent, failed int) {
	if m == nil {
		return
	}

	if sent > 0 {
		m.emailTotal.Add(ctx, int64(sent),
			metric.WithAttributes(attribute.String("outcome", "sent")))
	}

	if failed > 0 {
		m.emailTotal.Add(ctx, int64(failed),
			metric.WithAttributes(attribute.String("outcome", "failed")))
	}
}
