package ports

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
)

// PageSize is the fixed number of orders returned per page.
const PageSize = 10

// CustomerStore persists customers.
type CustomerStore interface {
	// InsertCustomers persists the drafts and returns them with store-assigned customer ids.
	// Each returned draft keeps the order id it was projected from.
	InsertCustomers(ctx context.Context, drafts []domain.CustomerDraft) ([]domain.CustomerDraft, error)
}

// OrderStore persists orders and serves paginated reads.
type OrderStore interface {
	// InsertOrders persists orders with their caller-supplied ids. A uniqueness violation is
	// reported as domain.ErrDuplicateBatch.
	InsertOrders(ctx context.Context, orders []domain.Order) error
	// ExistingIDs returns the subset of ids already present in the store.
	ExistingIDs(ctx context.Context, ids []int64) ([]int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// Transactor runs fn as a single unit of work. Stores called with the ctx passed to fn take
// part in the unit of work; any error returned by fn rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Snapshotter is implemented by stores able to read a page and its count from one snapshot.
type Snapshotter interface {
	WithinSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// FilterField selects which attribute a substring filter applies to.
type FilterField string

const (
	FilterNone         FilterField = ""
	FilterCustomerName FilterField = "customer_name"
	FilterStatus       FilterField = "status"
)

// ListFilter narrows list queries by a substring match and pagination. Page is 1-based.
type ListFilter struct {
	Field FilterField
	Term  string
	Page  int
}

// Offset returns the row offset of the page. Pages whose offset would overflow int
// saturate at math.MaxInt, which is past the end of any store.
func (f ListFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/PageSize {
		return math.MaxInt
	}
	return (f.Page - 1) * PageSize
}

// Matches reports whether the order satisfies the substring filter.
func (f ListFilter) Matches(order domain.Order) bool {
	switch f.Field {
	case FilterCustomerName:
		return strings.Contains(order.Customer.Name, f.Term)
	case FilterStatus:
		return strings.Contains(order.Status, f.Term)
	default:
		return true
	}
}
