package commands_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dejobratic/orderdesk/internal/orders/adapters/memory"
	"github.com/dejobratic/orderdesk/internal/orders/domain"
)

type mockEventBus struct {
	publishOrdersImportedFn func(ctx context.Context, orderIDs []int64) error
	publishOrderCancelledFn func(ctx context.Context, orderID int64) error
}

func (m *mockEventBus) PublishOrdersImported(ctx context.Context, orderIDs []int64) error {
	if m.publishOrdersImportedFn != nil {
		return m.publishOrdersImportedFn(ctx, orderIDs)
	}
	return nil
}

func (m *mockEventBus) PublishOrderCancelled(ctx context.Context, orderID int64) error {
	if m.publishOrderCancelledFn != nil {
		return m.publishOrderCancelledFn(ctx, orderID)
	}
	return nil
}

// faultyOrders lets a test fail individual order store calls.
type faultyOrders struct {
	*memory.OrderRepository
	existingErr error
	insertErr   error
	getErr      error
	updateErr   error
}

func (f *faultyOrders) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if f.existingErr != nil {
		return nil, f.existingErr
	}
	return f.OrderRepository.ExistingIDs(ctx, ids)
}

func (f *faultyOrders) InsertOrders(ctx context.Context, orders []domain.Order) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.OrderRepository.InsertOrders(ctx, orders)
}

func (f *faultyOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.OrderRepository.GetByID(ctx, id)
}

func (f *faultyOrders) UpdateStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.OrderRepository.UpdateStatus(ctx, id, status, updatedAt)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(id int64, name, status string) domain.FeedRecord {
	return domain.FeedRecord{
		ID:           id,
		Customer:     name,
		Address:      fmt.Sprintf("%d Main St", id),
		City:         "Springfield",
		Postcode:     "12345",
		Country:      "US",
		Amount:       id * 100,
		Status:       status,
		Deleted:      "No",
		Date:         "2024-01-01 00:00:00",
		LastModified: "2024-01-02 00:00:00",
	}
}
