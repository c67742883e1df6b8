package domain

import "github.com/shopspring/decimal"

type Category struct {
	ID   int64
	Name string
}

// Product is a catalog row. Only the stock ledger may write StockQuantity.
type Product struct {
	ID            int64
	CategoryID    int64
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
}

type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
}
