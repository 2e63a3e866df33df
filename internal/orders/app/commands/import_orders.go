package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
)

type ImportOrdersCommand struct {
	Records []domain.FeedRecord
}

type ImportResult struct {
	OrderIDs []int64
}

func (r ImportResult) Imported() int {
	return len(r.OrderIDs)
}

type ImportHandler interface {
	Handle(ctx context.Context, cmd ImportOrdersCommand) (*ImportResult, error)
}

// ImportOrdersCommandHandler reconciles a feed batch against the stores: the whole batch is
// written or nothing is.
type ImportOrdersCommandHandler struct {
	customers ports.CustomerStore
	orders    ports.OrderStore
	tx        ports.Transactor
	events    ports.EventBus
	logger    *slog.Logger
}

func NewImportOrdersCommandHandler(
	customers ports.CustomerStore,
	orders ports.OrderStore,
	tx ports.Transactor,
	events ports.EventBus,
	logger *slog.Logger,
) *ImportOrdersCommandHandler {
	return &ImportOrdersCommandHandler{
		customers: customers,
		orders:    orders,
		tx:        tx,
		events:    events,
		logger:    logger,
	}
}

func (h *ImportOrdersCommandHandler) Handle(ctx context.Context, cmd ImportOrdersCommand) (*ImportResult, error) {
	if len(cmd.Records) == 0 {
		return &ImportResult{OrderIDs: []int64{}}, nil
	}

	drafts, orders, err := project(cmd.Records)
	if err != nil {
		return nil, err
	}

	ids, err := batchIDs(orders)
	if err != nil {
		return nil, err
	}

	existing, err := h.orders.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, domain.Classify(fmt.Errorf("check existing orders: %w", err))
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("orders %v already exist: %w", existing, domain.ErrDuplicateBatch)
	}

	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		persisted, err := h.customers.InsertCustomers(ctx, drafts)
		if err != nil {
			return fmt.Errorf("insert customers: %w", err)
		}

		linked, err := correlate(orders, persisted)
		if err != nil {
			return err
		}

		if err := h.orders.InsertOrders(ctx, linked); err != nil {
			return fmt.Errorf("insert orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Classify(err)
	}

	if err := h.events.PublishOrdersImported(ctx, ids); err != nil {
		h.logger.WarnContext(ctx, "orders imported but event was not published",
			"error", err,
			"order_count", len(ids),
		)
	}

	return &ImportResult{OrderIDs: ids}, nil
}

func project(records []domain.FeedRecord) ([]domain.CustomerDraft, []domain.Order, error) {
	drafts := make([]domain.CustomerDraft, 0, len(records))
	orders := make([]domain.Order, 0, len(records))

	for i, record := range records {
		draft, order, err := record.Project()
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		drafts = append(drafts, draft)
		orders = append(orders, order)
	}

	return drafts, orders, nil
}

// batchIDs returns the order ids in input order, rejecting ids repeated within the batch.
func batchIDs(orders []domain.Order) ([]int64, error) {
	ids := make([]int64, 0, len(orders))
	seen := make(map[int64]struct{}, len(orders))

	for _, order := range orders {
		if _, ok := seen[order.ID]; ok {
			return nil, fmt.Errorf("order %d repeated in batch: %w", order.ID, domain.ErrDuplicateBatch)
		}
		seen[order.ID] = struct{}{}
		ids = append(ids, order.ID)
	}

	return ids, nil
}

// correlate attaches to every order the persisted customer projected from the same record.
func correlate(orders []domain.Order, persisted []domain.CustomerDraft) ([]domain.Order, error) {
	byOrder := make(map[int64]domain.Customer, len(persisted))
	for _, draft := range persisted {
		byOrder[draft.OrderID] = draft.Customer
	}

	linked := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		order.Customer = byOrder[order.ID]
		if !order.HasCustomer() {
			return nil, fmt.Errorf("no persisted customer for order %d: %w", order.ID, domain.ErrInternalInconsistency)
		}
		linked = append(linked, order)
	}

	return linked, nil
}
