package domain

import (
	"fmt"
	"time"
)

// TimestampLayout is the fixed date-time format of the batch feed and of order responses.
const TimestampLayout = "2006-01-02 15:04:05"

// FeedRecord is one entry of the external batch feed. It yields one customer and one order.
type FeedRecord struct {
	ID           int64  `json:"id"`
	Customer     string `json:"customer"`
	Address      string `json:"address1"`
	City         string `json:"city"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
	Amount       int64  `json:"amount"`
	Status       string `json:"status"`
	Deleted      string `json:"deleted"`
	Date         string `json:"date"`
	LastModified string `json:"last_modified"`
}

// CustomerDraft is a customer waiting to be persisted. OrderID correlates it with the order
// projected from the same feed record.
type CustomerDraft struct {
	OrderID  int64
	Customer Customer
}

// ParseTimestamp parses a feed timestamp in UTC.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q", ErrMalformedInput, value)
	}
	return t, nil
}

// FormatTimestamp renders a timestamp in the feed format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Project splits the record into its customer draft and its order. The order has no customer
// reference yet; it is resolved after the customer is persisted.
func (r FeedRecord) Project() (CustomerDraft, Order, error) {
	createdAt, err := ParseTimestamp(r.Date)
	if err != nil {
		return CustomerDraft{}, Order{}, fmt.Errorf("record %d date: %w", r.ID, err)
	}
	updatedAt, err := ParseTimestamp(r.LastModified)
	if err != nil {
		return CustomerDraft{}, Order{}, fmt.Errorf("record %d last_modified: %w", r.ID, err)
	}

	customer := Customer{
		Name:      r.Customer,
		Address:   r.Address,
		City:      r.City,
		Postcode:  r.Postcode,
		Country:   r.Country,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	order := Order{
		ID:        r.ID,
		Amount:    r.Amount,
		Status:    r.Status,
		Deleted:   r.Deleted,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	if err := order.Validate(); err != nil {
		return CustomerDraft{}, Order{}, err
	}

	return CustomerDraft{OrderID: r.ID, Customer: customer}, order, nil
}
