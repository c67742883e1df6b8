package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleHistoryRecord is the derived row appended after an order commits, one
// per order line. Append-only; consumers dedupe by (OrderID, ProductID).
type SaleHistoryRecord struct {
	SaleID      string
	OrderID     string
	CustomerID  int64
	ProductID   int64
	Quantity    int
	OrderDate   time.Time
	TotalAmount decimal.Decimal
}
