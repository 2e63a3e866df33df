package ports

import "context"

// EventBus defines the contract for publishing order lifecycle events.
type EventBus interface {
	PublishOrdersImported(ctx context.Context, orderIDs []int64) error
	PublishOrderCancelled(ctx context.Context, orderID int64) error
}
