package adapters_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dejobratic/orderdesk/internal/database"
	"github.com/dejobratic/orderdesk/internal/kafka"
	"github.com/dejobratic/orderdesk/internal/orders/adapters"
	"github.com/dejobratic/orderdesk/internal/orders/adapters/memory"
	"github.com/dejobratic/orderdesk/internal/orders/domain"
	"github.com/dejobratic/orderdesk/internal/orders/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracing(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	return exp
}

func newMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func histogramCount(t *testing.T, reader *sdkmetric.ManualReader, name string) uint64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}

	var count uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			histogram, ok := m.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("Expected Histogram[float64] for %s", name)
			}
			for _, dp := range histogram.DataPoints {
				count += dp.Count
			}
		}
	}
	return count
}

func TestObservableStores(t *testing.T) {
	exp := setupTracing(t)
	reader, mp := newMeter(t)

	metrics, err := database.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	db := memory.NewDatabase()
	customers := adapters.NewObservableCustomerStore(memory.NewCustomerRepository(db), metrics)
	orders := adapters.NewObservableOrderStore(memory.NewOrderRepository(db), metrics)
	ctx := context.Background()

	persisted, err := customers.InsertCustomers(ctx, []domain.CustomerDraft{{OrderID: 1, Customer: domain.Customer{Name: "Alice"}}})
	if err != nil {
		t.Fatalf("InsertCustomers() failed: %v", err)
	}
	if err := orders.InsertOrders(ctx, []domain.Order{{ID: 1, Status: "pending", Customer: persisted[0].Customer}}); err != nil {
		t.Fatalf("InsertOrders() failed: %v", err)
	}
	if _, err := orders.List(ctx, ports.ListFilter{Field: ports.FilterStatus, Term: "pend", Page: 1}); err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if _, err := orders.GetByID(ctx, 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %d", len(spans))
	}

	wantNames := []string{"CustomerStore.InsertCustomers", "OrderStore.InsertOrders", "OrderStore.List", "OrderStore.GetByID"}
	for i, name := range wantNames {
		if spans[i].Name != name {
			t.Errorf("span %d: expected %s, got %s", i, name, spans[i].Name)
		}
	}
	if spans[3].Status.Code != codes.Error {
		t.Errorf("expected failed lookup span to carry error status, got %v", spans[3].Status.Code)
	}

	if got := histogramCount(t, reader, "db_query_duration_seconds"); got != 4 {
		t.Errorf("expected 4 recorded queries, got %d", got)
	}
}

type failingBus struct{}

func (failingBus) PublishOrdersImported(context.Context, []int64) error {
	return errors.New("broker down")
}

func (failingBus) PublishOrderCancelled(context.Context, int64) error {
	return nil
}

func TestObservableEventBus(t *testing.T) {
	exp := setupTracing(t)
	reader, mp := newMeter(t)

	metrics, err := kafka.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	bus := adapters.NewObservableEventBus(failingBus{}, metrics)

	if err := bus.PublishOrdersImported(context.Background(), []int64{1}); err == nil {
		t.Error("expected publish error to be returned")
	}
	if err := bus.PublishOrderCancelled(context.Background(), 1); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	spans := exp.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error || spans[1].Status.Code != codes.Ok {
		t.Errorf("unexpected span statuses %v / %v", spans[0].Status.Code, spans[1].Status.Code)
	}

	if got := histogramCount(t, reader, "order_event_publish_duration_seconds"); got != 2 {
		t.Errorf("expected 2 publish latencies, got %d", got)
	}
}
