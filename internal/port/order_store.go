package port

import (
	"context"

	"github.com/storefront/order-core/internal/core/domain"
)

// OrderStore is the durable storage engine. CreateOrder must be atomic with
// respect to crash: the header, all lines, and the stock deltas become
// visible together or not at all.
type OrderStore interface {
	// GetProduct reads a catalog row. Returns nil when absent.
	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)

	// ListProducts returns the full catalog, used to seed the stock ledger.
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// CreateOrder persists the header, all lines, and the guarded stock
	// decrements in a single transaction.
	CreateOrder(ctx context.Context, order domain.Order, lines []domain.OrderLine) error

	// GetOrder returns a committed order with its lines, nil when absent.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, []domain.OrderLine, error)

	// InsertSaleHistory appends derived records, ignoring rows whose
	// (order_id, product_id) already exist.
	InsertSaleHistory(ctx context.Context, records []domain.SaleHistoryRecord) error
}
