package queries

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
)

// ListOrdersQuery requests one page of orders, optionally narrowed by a substring filter.
// An empty Term matches every order.
type ListOrdersQuery struct {
	Field ports.FilterField
	Term  string
	Page  int
}

func (q ListOrdersQuery) Validate() error {
	if q.Page <= 0 {
		return fmt.Errorf("%w: page must be a positive integer, got %d", domain.ErrInvalidArgument, q.Page)
	}
	switch q.Field {
	case ports.FilterNone, ports.FilterCustomerName, ports.FilterStatus:
		return nil
	default:
		return fmt.Errorf("%w: unknown filter %q", domain.ErrInvalidArgument, q.Field)
	}
}

func (q ListOrdersQuery) filter() ports.ListFilter {
	return ports.ListFilter{Field: q.Field, Term: q.Term, Page: q.Page}
}

// ParsePage converts the raw page query parameter. A missing page is invalid.
func ParsePage(raw string) (int, error) {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page <= 0 {
		return 0, fmt.Errorf("%w: page %q must be a positive integer", domain.ErrInvalidArgument, raw)
	}
	return page, nil
}

// ListResult is one page of orders plus the number of orders matching the query overall.
type ListResult struct {
	Orders []domain.Order
	Total  int
}

type ListHandler interface {
	Handle(ctx context.Context, query ListOrdersQuery) (*ListResult, error)
}

// ListOrdersQueryHandler reads a page and its total. When a Snapshotter is given both reads
// share one snapshot.
type ListOrdersQueryHandler struct {
	orders    ports.OrderStore
	snapshots ports.Snapshotter
}

func NewListOrdersQueryHandler(orders ports.OrderStore, snapshots ports.Snapshotter) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{orders: orders, snapshots: snapshots}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) (*ListResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var result ListResult
	read := func(ctx context.Context) error {
		filter := query.filter()

		orders, err := h.orders.List(ctx, filter)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}

		total, err := h.orders.Count(ctx, filter)
		if err != nil {
			return fmt.Errorf("count orders: %w", err)
		}

		if orders == nil {
			orders = []domain.Order{}
		}
		result = ListResult{Orders: orders, Total: total}
		return nil
	}

	var err error
	if h.snapshots != nil {
		err = h.snapshots.WithinSnapshot(ctx, read)
	} else {
		err = read(ctx)
	}
	if err != nil {
		return nil, domain.Classify(err)
	}

	return &result, nil
}
