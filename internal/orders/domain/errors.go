package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to API callers.
type ErrorKind string

const (
	KindUnknown               ErrorKind = "unknown"
	KindInvalidArgument       ErrorKind = "invalid_argument"
	KindNotFound              ErrorKind = "not_found"
	KindDuplicateBatch        ErrorKind = "duplicate_batch"
	KindMalformedInput        ErrorKind = "malformed_input"
	KindStoreUnavailable      ErrorKind = "store_unavailable"
	KindInternalInconsistency ErrorKind = "internal_inconsistency"
)

var (
	// ErrInvalidArgument is returned for a bad id or page supplied by the caller.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when the referenced order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateBatch is returned when any incoming order id already exists.
	ErrDuplicateBatch = errors.New("data already inserted")
	// ErrMalformedInput is returned when the batch feed cannot be decoded or projected.
	ErrMalformedInput = errors.New("malformed input")
	// ErrStoreUnavailable wraps storage faults that are not classified otherwise.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInternalInconsistency is returned when an order cannot be paired with its customer.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

var kinds = []struct {
	sentinel error
	kind     ErrorKind
}{
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrNotFound, KindNotFound},
	{ErrDuplicateBatch, KindDuplicateBatch},
	{ErrMalformedInput, KindMalformedInput},
	{ErrInternalInconsistency, KindInternalInconsistency},
	{ErrStoreUnavailable, KindStoreUnavailable},
}

// KindOf returns the kind of a classified error, or KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindUnknown
}

// Classify keeps already classified errors and marks everything else, timeouts included,
// as a store fault.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
