package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
)

// CancelPolicy controls whether an already-cancelled order may be cancelled again.
// A repeated cancellation only refreshes the last-updated timestamp.
type CancelPolicy struct {
	AllowRepeat bool
}

type CancelOrderCommand struct {
	RawID string
}

// OrderID parses the raw identifier taken from the request path.
func (c CancelOrderCommand) OrderID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.RawID), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: order id %q must be a positive integer", domain.ErrInvalidArgument, c.RawID)
	}
	return id, nil
}

type CancelHandler interface {
	Handle(ctx context.Context, cmd CancelOrderCommand) error
}

type CancelOrderCommandHandler struct {
	orders ports.OrderStore
	events ports.EventBus
	policy CancelPolicy
	logger *slog.Logger
	now    func() time.Time
}

func NewCancelOrderCommandHandler(
	orders ports.OrderStore,
	events ports.EventBus,
	policy CancelPolicy,
	logger *slog.Logger,
) *CancelOrderCommandHandler {
	return &CancelOrderCommandHandler{
		orders: orders,
		events: events,
		policy: policy,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used to stamp cancellations.
func (h *CancelOrderCommandHandler) WithClock(now func() time.Time) *CancelOrderCommandHandler {
	h.now = now
	return h
}

func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) error {
	id, err := cmd.OrderID()
	if err != nil {
		return err
	}

	order, err := h.orders.GetByID(ctx, id)
	if err != nil {
		return domain.Classify(fmt.Errorf("get order %d: %w", id, err))
	}

	if order.IsCancelled() && !h.policy.AllowRepeat {
		return fmt.Errorf("%w: order %d is already cancelled", domain.ErrInvalidArgument, id)
	}

	order.Cancel(h.now())

	if err := h.orders.UpdateStatus(ctx, id, order.Status, order.UpdatedAt); err != nil {
		return domain.Classify(fmt.Errorf("update order %d: %w", id, err))
	}

	if err := h.events.PublishOrderCancelled(ctx, id); err != nil {
		h.logger.WarnContext(ctx, "order cancelled but event was not published",
			"error", err,
			"order_id", id,
		)
	}

	return nil
}
