package kafka

import (
	"context"
	"log/slog"
)

// NoopEventBus logs events instead of sending them to Kafka. Used when Kafka is disabled.
type NoopEventBus struct {
	logger *slog.Logger
}

func NewNoopEventBus(logger *slog.Logger) *NoopEventBus {
	return &NoopEventBus{logger: logger}
}

func (n *NoopEventBus) PublishOrdersImported(ctx context.Context, orderIDs []int64) error {
	n.logger.DebugContext(ctx, "event::orders_imported", "order_count", len(orderIDs))
	return nil
}

func (n *NoopEventBus) PublishOrderCancelled(ctx context.Context, orderID int64) error {
	n.logger.DebugContext(ctx, "event::order_cancelled", "order_id", orderID)
	return nil
}
