package database

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics instruments store calls by logical operation (insert_orders, list_orders, ...).
type Metrics struct {
	queryDuration metric.Float64Histogram
	queryErrors   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	queryDuration, err := meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Store operation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_duration histogram: %w", err)
	}

	queryErrors, err := meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Store operations that returned an error"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create db_query_errors counter: %w", err)
	}

	return &Metrics{queryDuration: queryDuration, queryErrors: queryErrors}, nil
}

// RecordQuery records one store call. errorKind is empty on success.
func (m *Metrics) RecordQuery(ctx context.Context, operation string, durationSeconds float64, errorKind string) {
	outcome := "ok"
	if errorKind != "" {
		outcome = "error"
		m.queryErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("error_kind", errorKind),
		))
	}

	m.queryDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
