package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/orderdesk/internal/kafka"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
	"github.com/dejobratic/orderdesk/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrdersImported(ctx context.Context, orderIDs []int64) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrdersImported")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("event.type", kafka.EventOrdersImported),
		attribute.Int("event.order_count", len(orderIDs)),
	)

	start := time.Now()
	err := e.bus.PublishOrdersImported(ctx, orderIDs)
	e.metrics.RecordPublish(ctx, kafka.EventOrdersImported, time.Since(start), err)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishOrderCancelled(ctx context.Context, orderID int64) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderCancelled")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("event.type", kafka.EventOrderCancelled),
		attribute.Int64("order.id", orderID),
	)

	start := time.Now()
	err := e.bus.PublishOrderCancelled(ctx, orderID)
	e.metrics.RecordPublish(ctx, kafka.EventOrderCancelled, time.Since(start), err)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
