package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	importsTotal        metric.Int64Counter
	ordersImportedTotal metric.Int64Counter
	importDuration      metric.Float64Histogram
	ordersCancelled     metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.importsTotal, err = meter.Int64Counter(
		"order_imports_total",
		metric.WithDescription("Total number of import requests processed"),
		metric.WithUnit("{import}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_imports_total counter: %w", err)
	}

	m.ordersImportedTotal, err = meter.Int64Counter(
		"orders_imported_total",
		metric.WithDescription("Total number of orders written by imports"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_imported_total counter: %w", err)
	}

	m.importDuration, err = meter.Float64Histogram(
		"order_import_duration_seconds",
		metric.WithDescription("Duration of order import operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_import_duration histogram: %w", err)
	}

	m.ordersCancelled, err = meter.Int64Counter(
		"orders_cancelled_total",
		metric.WithDescription("Total number of cancellation requests processed"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_cancelled_total counter: %w", err)
	}

	return m, nil
}

// RecordImport counts one import request and, on success, the orders it wrote.
// kind is the error kind of a failed import and ignored on success.
func (m *Metrics) RecordImport(ctx context.Context, imported int, kind string) {
	status := "success"
	if kind != "" {
		status = "error"
	}

	m.importsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("error_kind", kind),
	))

	if kind == "" && imported > 0 {
		m.ordersImportedTotal.Add(ctx, int64(imported))
	}
}

func (m *Metrics) RecordImportDuration(ctx context.Context, durationSeconds float64) {
	m.importDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordOrderCancelled(ctx context.Context, kind string) {
	status := "success"
	if kind != "" {
		status = "error"
	}
	m.ordersCancelled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("error_kind", kind),
	))
}
