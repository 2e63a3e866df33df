package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
)

// Database is an in-memory store of customers and orders useful for local development and tests.
// Orders keep only the customer id; reads join the customer back in.
type Database struct {
	mu             sync.RWMutex
	nextCustomerID int64
	customers      map[int64]domain.Customer
	orders         map[int64]domain.Order
}

// NewDatabase constructs an empty in-memory database.
func NewDatabase() *Database {
	return &Database{
		customers: make(map[int64]domain.Customer),
		orders:    make(map[int64]domain.Order),
	}
}

// CustomerRepository implements ports.CustomerStore on top of Database.
type CustomerRepository struct {
	db *Database
}

// NewCustomerRepository constructs a customer store.
func NewCustomerRepository(db *Database) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// InsertCustomers assigns sequential ids.
func (r *CustomerRepository) InsertCustomers(ctx context.Context, drafts []domain.CustomerDraft) ([]domain.CustomerDraft, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	journal := journalFrom(ctx)
	persisted := make([]domain.CustomerDraft, 0, len(drafts))
	for _, draft := range drafts {
		r.db.nextCustomerID++
		draft.Customer.ID = r.db.nextCustomerID
		r.db.customers[draft.Customer.ID] = draft.Customer
		journal.recordCustomer(draft.Customer.ID)
		persisted = append(persisted, draft)
	}
	return persisted, nil
}

// OrderRepository implements ports.OrderStore on top of Database.
type OrderRepository struct {
	db *Database
}

// NewOrderRepository constructs an order store.
func NewOrderRepository(db *Database) *OrderRepository {
	return &OrderRepository{db: db}
}

// InsertOrders stores all orders or none of them.
func (r *OrderRepository) InsertOrders(ctx context.Context, orders []domain.Order) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	seen := make(map[int64]struct{}, len(orders))
	for _, order := range orders {
		if _, ok := r.db.orders[order.ID]; ok {
			return fmt.Errorf("insert order %d: %w", order.ID, domain.ErrDuplicateBatch)
		}
		if _, ok := seen[order.ID]; ok {
			return fmt.Errorf("insert order %d: %w", order.ID, domain.ErrDuplicateBatch)
		}
		seen[order.ID] = struct{}{}
		if _, ok := r.db.customers[order.Customer.ID]; !ok {
			return fmt.Errorf("insert order %d: customer %d missing: %w", order.ID, order.Customer.ID, domain.ErrInternalInconsistency)
		}
	}

	journal := journalFrom(ctx)
	for _, order := range orders {
		r.db.orders[order.ID] = domain.Order{
			ID:        order.ID,
			Amount:    order.Amount,
			Status:    order.Status,
			Deleted:   order.Deleted,
			CreatedAt: order.CreatedAt,
			UpdatedAt: order.UpdatedAt,
			Customer:  domain.Customer{ID: order.Customer.ID},
		}
		journal.recordOrder(order.ID)
	}
	return nil
}

// ExistingIDs returns the ids already stored, in the order they were asked for.
func (r *OrderRepository) ExistingIDs(_ context.Context, ids []int64) ([]int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var existing []int64
	for _, id := range ids {
		if _, ok := r.db.orders[id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

// GetByID fetches a single order with its customer.
func (r *OrderRepository) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	order, ok := r.db.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	joined := r.db.join(order)
	return &joined, nil
}

// UpdateStatus sets the status and updated timestamp of an order.
func (r *OrderRepository) UpdateStatus(_ context.Context, id int64, status string, updatedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	order, ok := r.db.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	order.Status = status
	order.UpdatedAt = updatedAt
	r.db.orders[id] = order
	return nil
}

// List returns one page of matching orders ordered by id.
func (r *OrderRepository) List(_ context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	matched := r.db.matching(filter)

	start := filter.Offset()
	if start < 0 || start >= len(matched) {
		return []domain.Order{}, nil
	}
	end := start + ports.PageSize
	if end > len(matched) || end < start {
		end = len(matched)
	}

	page := make([]domain.Order, end-start)
	copy(page, matched[start:end])
	return page, nil
}

// Count returns the number of matching orders regardless of pagination.
func (r *OrderRepository) Count(_ context.Context, filter ports.ListFilter) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	return len(r.db.matching(filter)), nil
}

// caller must hold mu
func (db *Database) matching(filter ports.ListFilter) []domain.Order {
	var result []domain.Order
	for _, order := range db.orders {
		joined := db.join(order)
		if filter.Matches(joined) {
			result = append(result, joined)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

func (db *Database) join(order domain.Order) domain.Order {
	order.Customer = db.customers[order.Customer.ID]
	return order
}

// Stats returns the number of stored customers and orders.
func (db *Database) Stats() (customers, orders int) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.customers), len(db.orders)
}
