package domain

import "github.com/shopspring/decimal"

// Reservation is a ledger-issued token for an in-flight stock decrement. The
// decrement itself happens at reserve time; Release is the compensating action
// and Commit only marks the token final. UnitPrice is snapshotted in the same
// atomic step as the decrement, so price reads cannot race stock updates.
type Reservation struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}
