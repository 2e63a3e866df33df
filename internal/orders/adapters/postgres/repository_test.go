//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dejobratic/orderdesk/internal/database/dbtest"
	"github.com/dejobratic/orderdesk/internal/orders/adapters/postgres"
	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
	"github.com/jackc/pgx/v5/pgxpool"
)

type stores struct {
	customers *postgres.CustomerRepository
	orders    *postgres.OrderRepository
	tx        *postgres.Transactor
}

func newStores(pool *pgxpool.Pool) stores {
	return stores{
		customers: postgres.NewCustomerRepository(pool),
		orders:    postgres.NewOrderRepository(pool),
		tx:        postgres.NewTransactor(pool),
	}
}

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func draftFor(id int64, name string) domain.CustomerDraft {
	return domain.CustomerDraft{
		OrderID: id,
		Customer: domain.Customer{
			Name:      name,
			Address:   "1 Main St",
			City:      "Springfield",
			Postcode:  "12345",
			Country:   "US",
			CreatedAt: baseTime,
			UpdatedAt: baseTime,
		},
	}
}

// importBatch inserts customers and orders in one transaction, pairing them by order id.
func importBatch(t *testing.T, s stores, ids []int64, status string) error {
	t.Helper()
	ctx := context.Background()

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		drafts := make([]domain.CustomerDraft, 0, len(ids))
		for _, id := range ids {
			drafts = append(drafts, draftFor(id, fmt.Sprintf("customer-%d", id)))
		}

		customers, err := s.customers.InsertCustomers(ctx, drafts)
		if err != nil {
			return err
		}

		orders := make([]domain.Order, 0, len(ids))
		for i, id := range ids {
			orders = append(orders, domain.Order{
				ID:        id,
				Amount:    id * 100,
				Status:    status,
				Deleted:   "No",
				CreatedAt: baseTime,
				UpdatedAt: baseTime,
				Customer:  customers[i].Customer,
			})
		}
		return s.orders.InsertOrders(ctx, orders)
	})
}

func TestImportAndGetByID(t *testing.T) {
	s := newStores(dbtest.NewPool(t))
	ctx := context.Background()

	if err := importBatch(t, s, []int64{1, 2}, "pending"); err != nil {
		t.Fatalf("failed to import: %v", err)
	}

	order, err := s.orders.GetByID(ctx, 2)
	if err != nil {
		t.Fatalf("failed to get order: %v", err)
	}

	if order.Amount != 200 {
		t.Errorf("expected amount 200, got %d", order.Amount)
	}
	if order.Customer.Name != "customer-2" {
		t.Errorf("expected customer-2, got %s", order.Customer.Name)
	}
	if !order.CreatedAt.Equal(baseTime) {
		t.Errorf("expected created_at %v, got %v", baseTime, order.CreatedAt)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	s := newStores(dbtest.NewPool(t))

	_, err := s.orders.GetByID(context.Background(), 404)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertOrders_DuplicateRollsBackCustomers(t *testing.T) {
	pool := dbtest.NewPool(t)
	s := newStores(pool)
	ctx := context.Background()

	if err := importBatch(t, s, []int64{1}, "pending"); err != nil {
		t.Fatalf("failed to import: %v", err)
	}

	err := importBatch(t, s, []int64{2, 1}, "pending")
	if !errors.Is(err, domain.ErrDuplicateBatch) {
		t.Fatalf("expected ErrDuplicateBatch, got %v", err)
	}

	var customers int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers").Scan(&customers); err != nil {
		t.Fatalf("failed to count customers: %v", err)
	}
	if customers != 1 {
		t.Errorf("expected failed batch to leave 1 customer, got %d", customers)
	}

	if _, err := s.orders.GetByID(ctx, 2); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected order 2 to be rolled back, got %v", err)
	}
}

func TestInsertOrders_MissingCustomer(t *testing.T) {
	s := newStores(dbtest.NewPool(t))

	err := s.orders.InsertOrders(context.Background(), []domain.Order{{
		ID: 1, Amount: 1, Status: "pending", Deleted: "No",
		CreatedAt: baseTime, UpdatedAt: baseTime,
		Customer: domain.Customer{ID: 999},
	}})
	if !errors.Is(err, domain.ErrInternalInconsistency) {
		t.Errorf("expected ErrInternalInconsistency, got %v", err)
	}
}

func TestExistingIDs(t *testing.T) {
	s := newStores(dbtest.NewPool(t))

	if err := importBatch(t, s, []int64{3, 5}, "pending"); err != nil {
		t.Fatalf("failed to import: %v", err)
	}

	existing, err := s.orders.ExistingIDs(context.Background(), []int64{1, 3, 5, 7})
	if err != nil {
		t.Fatalf("failed to check ids: %v", err)
	}

	if len(existing) != 2 || existing[0] != 3 || existing[1] != 5 {
		t.Errorf("expected [3 5], got %v", existing)
	}
}

func TestListAndCount(t *testing.T) {
	s := newStores(dbtest.NewPool(t))
	ctx := context.Background()

	var pending, cancelled []int64
	for id := int64(1); id <= 25; id++ {
		if id%5 == 0 {
			cancelled = append(cancelled, id)
		} else {
			pending = append(pending, id)
		}
	}
	if err := importBatch(t, s, pending, "pending"); err != nil {
		t.Fatalf("failed to import pending: %v", err)
	}
	if err := importBatch(t, s, cancelled, domain.StatusCancelled); err != nil {
		t.Fatalf("failed to import cancelled: %v", err)
	}

	t.Run("pages are ordered by id", func(t *testing.T) {
		page, err := s.orders.List(ctx, ports.ListFilter{Page: 3})
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(page) != 5 {
			t.Fatalf("expected 5 orders on page 3, got %d", len(page))
		}
		if page[0].ID != 21 || page[4].ID != 25 {
			t.Errorf("expected ids 21..25, got %d..%d", page[0].ID, page[4].ID)
		}
	})

	t.Run("page past the end is empty but total is kept", func(t *testing.T) {
		filter := ports.ListFilter{Page: 9}
		page, err := s.orders.List(ctx, filter)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(page) != 0 {
			t.Errorf("expected empty page, got %d", len(page))
		}
		total, err := s.orders.Count(ctx, filter)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if total != 25 {
			t.Errorf("expected total 25, got %d", total)
		}
	})

	t.Run("filters by status substring", func(t *testing.T) {
		filter := ports.ListFilter{Field: ports.FilterStatus, Term: "cancel", Page: 1}
		total, err := s.orders.Count(ctx, filter)
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if total != 5 {
			t.Errorf("expected 5 cancelled, got %d", total)
		}
	})

	t.Run("filters by customer name inside a snapshot", func(t *testing.T) {
		filter := ports.ListFilter{Field: ports.FilterCustomerName, Term: "customer-1", Page: 1}

		var page []domain.Order
		var total int
		err := s.tx.WithinSnapshot(ctx, func(ctx context.Context) error {
			var err error
			if page, err = s.orders.List(ctx, filter); err != nil {
				return err
			}
			total, err = s.orders.Count(ctx, filter)
			return err
		})
		if err != nil {
			t.Fatalf("snapshot read failed: %v", err)
		}

		// customer-1 and customer-10..customer-19
		if total != 11 {
			t.Errorf("expected 11 matches, got %d", total)
		}
		if len(page) != 10 {
			t.Errorf("expected a full page, got %d", len(page))
		}
	})

	t.Run("wildcards in the term are literal", func(t *testing.T) {
		total, err := s.orders.Count(ctx, ports.ListFilter{Field: ports.FilterCustomerName, Term: "%", Page: 1})
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if total != 0 {
			t.Errorf("expected no matches for literal %%, got %d", total)
		}
	})
}

func TestUpdateStatus(t *testing.T) {
	s := newStores(dbtest.NewPool(t))
	ctx := context.Background()

	if err := importBatch(t, s, []int64{1}, "pending"); err != nil {
		t.Fatalf("failed to import: %v", err)
	}

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := s.orders.UpdateStatus(ctx, 1, domain.StatusCancelled, now); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}

	order, err := s.orders.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get order: %v", err)
	}
	if order.Status != domain.StatusCancelled {
		t.Errorf("expected cancelled, got %s", order.Status)
	}
	if !order.UpdatedAt.Equal(now) {
		t.Errorf("expected updated_at %v, got %v", now, order.UpdatedAt)
	}

	if err := s.orders.UpdateStatus(ctx, 404, domain.StatusCancelled, now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
