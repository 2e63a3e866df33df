package http

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics instruments the API by mux pattern rather than raw path.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	inFlight        metric.Int64UpDownCounter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration histogram: %w", err)
	}

	requestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total counter: %w", err)
	}

	inFlight, err := meter.Int64UpDownCounter(
		"http_requests_in_flight",
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_in_flight counter: %w", err)
	}

	return &Metrics{requestDuration: requestDuration, requestsTotal: requestsTotal, inFlight: inFlight}, nil
}

func (m *Metrics) RequestStarted(ctx context.Context) {
	m.inFlight.Add(ctx, 1)
}

func (m *Metrics) RecordRequest(ctx context.Context, method, route string, statusCode int, durationSeconds float64) {
	m.inFlight.Add(ctx, -1)
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status_code", statusCode),
	))
	m.requestDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}
