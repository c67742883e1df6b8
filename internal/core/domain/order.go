package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCommitted OrderStatus = "committed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is the header row. Immutable once committed.
type Order struct {
	ID          string
	CustomerID  int64
	Status      OrderStatus
	TotalAmount decimal.Decimal
	OrderDate   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderLine is a single order_details row. UnitPrice is the snapshot captured
// when the stock was reserved, decoupled from the live catalog price.
type OrderLine struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineRequest is what callers submit: product and quantity. The unit price is
// filled in by the ledger at reservation time.
type LineRequest struct {
	ProductID int64
	Quantity  int
}

// CommittedOrder carries a durably committed order to the projector.
type CommittedOrder struct {
	OrderID    string
	CustomerID int64
	OrderDate  time.Time
	Lines      []OrderLine
}
