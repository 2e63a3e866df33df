package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dejobratic/orderdesk/internal/orders/domain"
)

func TestOrderValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   domain.Order
		wantErr bool
	}{
		{
			name:  "valid order",
			order: domain.Order{ID: 1, Amount: 500, Status: "pending", Deleted: "No"},
		},
		{
			name:  "status at max length",
			order: domain.Order{ID: 1, Status: strings.Repeat("s", domain.MaxStatusLength)},
		},
		{
			name:    "zero id",
			order:   domain.Order{ID: 0, Status: "pending"},
			wantErr: true,
		},
		{
			name:    "negative id",
			order:   domain.Order{ID: -3, Status: "pending"},
			wantErr: true,
		},
		{
			name:    "status too long",
			order:   domain.Order{ID: 1, Status: strings.Repeat("s", domain.MaxStatusLength+1)},
			wantErr: true,
		},
		{
			name:    "deleted marker too long",
			order:   domain.Order{ID: 1, Deleted: "maybe-not"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Order.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrMalformedInput) {
				t.Errorf("expected ErrMalformedInput, got %v", err)
			}
		})
	}
}

func TestOrderCancel(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	order := domain.Order{ID: 7, Status: "pending", CreatedAt: created, UpdatedAt: created}

	now := created.Add(48 * time.Hour)
	order.Cancel(now)

	if !order.IsCancelled() {
		t.Errorf("expected order to be cancelled, got status %q", order.Status)
	}
	if !order.UpdatedAt.Equal(now) {
		t.Errorf("expected updated_at %v, got %v", now, order.UpdatedAt)
	}
	if !order.CreatedAt.Equal(created) {
		t.Error("expected created_at to stay unchanged")
	}

	later := now.Add(time.Minute)
	order.Cancel(later)
	if !order.UpdatedAt.Equal(later) {
		t.Errorf("expected repeated cancel to refresh updated_at, got %v", order.UpdatedAt)
	}
}

func TestOrderHasCustomer(t *testing.T) {
	if (domain.Order{}).HasCustomer() {
		t.Error("expected order without customer id to report no customer")
	}
	if !(domain.Order{Customer: domain.Customer{ID: 4}}).HasCustomer() {
		t.Error("expected order with customer id to report a customer")
	}
}
