package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/orderdesk/internal/database"
	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
	"github.com/dejobratic/orderdesk/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// observe runs call inside a span and records its duration under operation.
func observe(ctx context.Context, metrics *database.Metrics, spanName, operation string, attrs []attribute.KeyValue, call func(ctx context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span, append(attrs, attribute.String("operation", operation))...)

	start := time.Now()
	err := call(ctx)

	var kind string
	if err != nil {
		kind = string(domain.KindOf(err))
	}
	metrics.RecordQuery(ctx, operation, time.Since(start).Seconds(), kind)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

type ObservableCustomerStore struct {
	store   ports.CustomerStore
	metrics *database.Metrics
}

func NewObservableCustomerStore(store ports.CustomerStore, metrics *database.Metrics) *ObservableCustomerStore {
	return &ObservableCustomerStore{store: store, metrics: metrics}
}

func (s *ObservableCustomerStore) InsertCustomers(ctx context.Context, drafts []domain.CustomerDraft) ([]domain.CustomerDraft, error) {
	var persisted []domain.CustomerDraft
	err := observe(ctx, s.metrics, "CustomerStore.InsertCustomers", "insert_customers",
		[]attribute.KeyValue{attribute.Int("batch.size", len(drafts))},
		func(ctx context.Context) error {
			var err error
			persisted, err = s.store.InsertCustomers(ctx, drafts)
			return err
		})
	return persisted, err
}

type ObservableOrderStore struct {
	store   ports.OrderStore
	metrics *database.Metrics
}

func NewObservableOrderStore(store ports.OrderStore, metrics *database.Metrics) *ObservableOrderStore {
	return &ObservableOrderStore{store: store, metrics: metrics}
}

func (s *ObservableOrderStore) InsertOrders(ctx context.Context, orders []domain.Order) error {
	return observe(ctx, s.metrics, "OrderStore.InsertOrders", "insert_orders",
		[]attribute.KeyValue{attribute.Int("batch.size", len(orders))},
		func(ctx context.Context) error {
			return s.store.InsertOrders(ctx, orders)
		})
}

func (s *ObservableOrderStore) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	var existing []int64
	err := observe(ctx, s.metrics, "OrderStore.ExistingIDs", "existing_order_ids",
		[]attribute.KeyValue{attribute.Int("batch.size", len(ids))},
		func(ctx context.Context) error {
			var err error
			existing, err = s.store.ExistingIDs(ctx, ids)
			if err == nil {
				trace.SpanFromContext(ctx).SetAttributes(attribute.Int("result.count", len(existing)))
			}
			return err
		})
	return existing, err
}

func (s *ObservableOrderStore) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var order *domain.Order
	err := observe(ctx, s.metrics, "OrderStore.GetByID", "get_order_by_id",
		[]attribute.KeyValue{attribute.Int64("order.id", id)},
		func(ctx context.Context) error {
			var err error
			order, err = s.store.GetByID(ctx, id)
			return err
		})
	return order, err
}

func (s *ObservableOrderStore) UpdateStatus(ctx context.Context, id int64, status string, updatedAt time.Time) error {
	return observe(ctx, s.metrics, "OrderStore.UpdateStatus", "update_order_status",
		[]attribute.KeyValue{
			attribute.Int64("order.id", id),
			attribute.String("order.new_status", status),
		},
		func(ctx context.Context) error {
			return s.store.UpdateStatus(ctx, id, status, updatedAt)
		})
}

func (s *ObservableOrderStore) List(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	var orders []domain.Order
	err := observe(ctx, s.metrics, "OrderStore.List", "list_orders", filterAttributes(filter),
		func(ctx context.Context) error {
			var err error
			orders, err = s.store.List(ctx, filter)
			if err == nil {
				trace.SpanFromContext(ctx).SetAttributes(attribute.Int("result.count", len(orders)))
			}
			return err
		})
	return orders, err
}

func (s *ObservableOrderStore) Count(ctx context.Context, filter ports.ListFilter) (int, error) {
	var total int
	err := observe(ctx, s.metrics, "OrderStore.Count", "count_orders", filterAttributes(filter),
		func(ctx context.Context) error {
			var err error
			total, err = s.store.Count(ctx, filter)
			return err
		})
	return total, err
}

func filterAttributes(filter ports.ListFilter) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int("page", filter.Page)}
	if filter.Field != ports.FilterNone {
		attrs = append(attrs,
			attribute.String("filter.field", string(filter.Field)),
			attribute.String("filter.term", filter.Term),
		)
	}
	return attrs
}
