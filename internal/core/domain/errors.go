package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyOrder rejects an order with no line items.
	ErrEmptyOrder = errors.New("order has no line items")

	// ErrInvalidQuantity rejects a line item whose quantity is not positive.
	ErrInvalidQuantity = errors.New("line quantity must be positive")

	// ErrReserveTimeout signals that a reservation exceeded its bounded wait.
	// Safe to retry with backoff.
	ErrReserveTimeout = errors.New("stock reservation timed out")
)

// InsufficientStockError reports a rejected reservation. Available is the
// stock observed at the moment the reservation was refused.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// PersistenceError wraps a storage fault during the durable commit. All
// reservations are released before it surfaces, so the whole PlaceOrder call
// is safe to retry.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("order persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
