package kafka

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records the outcome of order event publishing.
type Metrics struct {
	publishDuration metric.Float64Histogram
	published       metric.Int64Counter
	failed          metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	duration, err := meter.Float64Histogram(
		"order_event_publish_duration_seconds",
		metric.WithDescription("Time spent handing an order event to the bus"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_event_publish_duration histogram: %w", err)
	}

	published, err := meter.Int64Counter(
		"order_events_published_total",
		metric.WithDescription("Order events accepted by the bus"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_events_published counter: %w", err)
	}

	failed, err := meter.Int64Counter(
		"order_events_failed_total",
		metric.WithDescription("Order events lost after their write committed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_events_failed counter: %w", err)
	}

	return &Metrics{publishDuration: duration, published: published, failed: failed}, nil
}

// RecordPublish records one publish attempt of event.
func (m *Metrics) RecordPublish(ctx context.Context, event string, elapsed time.Duration, err error) {
	outcome := "published"
	counter := m.published
	if err != nil {
		outcome = "failed"
		counter = m.failed
	}

	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
	m.publishDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("outcome", outcome),
	))
}
