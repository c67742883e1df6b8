package port

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/storefront/order-core/internal/core/domain"
)

// StockLedger owns the mutable stock counter per product. Reservations on the
// same product are strictly ordered; disjoint products never block each other.
type StockLedger interface {
	// Reserve atomically decrements stock for productID and snapshots the
	// unit price in the same step. Returns *domain.InsufficientStockError
	// when quantity exceeds available stock.
	Reserve(ctx context.Context, productID int64, quantity int) (domain.Reservation, error)

	// Release reverses a reservation. Compensating action for order failure.
	Release(ctx context.Context, res domain.Reservation) error

	// Commit finalizes a reservation. The decrement already happened at
	// Reserve time, so this only marks the token final.
	Commit(ctx context.Context, res domain.Reservation) error

	// SeedStock loads a product's stock and unit price into the ledger.
	SeedStock(ctx context.Context, productID int64, stock int, price decimal.Decimal) error
}

// RequestDeduper claims a request ID so that transport-level retries of the
// same request are rejected instead of replayed.
type RequestDeduper interface {
	// ClaimRequest returns false if the request ID was already claimed.
	ClaimRequest(ctx context.Context, requestID string) (bool, error)
}
