package domain

import (
	"fmt"
	"time"
)

const (
	// StatusCancelled is the label written by order cancellation.
	StatusCancelled = "cancelled"

	MaxStatusLength  = 20
	MaxDeletedLength = 5
)

// Customer is the buyer an order belongs to. Customers are created by imports only.
type Customer struct {
	ID        int64
	Name      string
	Address   string
	City      string
	Postcode  string
	Country   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order is a purchase imported from the batch feed. The ID comes from the feed verbatim.
type Order struct {
	ID        int64
	Amount    int64
	Status    string
	Deleted   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Customer  Customer
}

// Validate ensures the order fits the storage constraints.
func (o Order) Validate() error {
	if o.ID <= 0 {
		return fmt.Errorf("%w: order id must be positive, got %d", ErrMalformedInput, o.ID)
	}
	if len(o.Status) > MaxStatusLength {
		return fmt.Errorf("%w: order %d status exceeds %d characters", ErrMalformedInput, o.ID, MaxStatusLength)
	}
	if len(o.Deleted) > MaxDeletedLength {
		return fmt.Errorf("%w: order %d deleted marker exceeds %d characters", ErrMalformedInput, o.ID, MaxDeletedLength)
	}
	return nil
}

// HasCustomer reports whether the order references a persisted customer.
func (o Order) HasCustomer() bool {
	return o.Customer.ID > 0
}

// IsCancelled indicates whether the order already carries the cancelled label.
func (o Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// Cancel marks the order cancelled and refreshes its last-updated timestamp.
func (o *Order) Cancel(now time.Time) {
	o.Status = StatusCancelled
	o.UpdatedAt = now
}
