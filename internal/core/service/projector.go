package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/storefront/order-core/internal/core/domain"
	"github.com/storefront/order-core/internal/port"
)

const (
	projectionAttempts = 3
	projectionTimeout  = 5 * time.Second
)

// Project derives one sale-history record per order line. Pure: the per-line
// total is quantity times the snapshotted unit price.
func Project(order domain.CommittedOrder) []domain.SaleHistoryRecord {
	records := make([]domain.SaleHistoryRecord, len(order.Lines))
	for i, line := range order.Lines {
		records[i] = domain.SaleHistoryRecord{
			SaleID:      uuid.New().String(),
			OrderID:     order.OrderID,
			CustomerID:  order.CustomerID,
			ProductID:   line.ProductID,
			Quantity:    line.Quantity,
			OrderDate:   order.OrderDate,
			TotalAmount: line.Subtotal(),
		}
	}
	return records
}

// SaleHistoryProjector drains committed orders and appends their derived
// records. Orders arrive only after the durable commit, so it never projects
// a row for an order that could roll back. Delivery is at-least-once; the
// store dedupes by (order_id, product_id).
type SaleHistoryProjector struct {
	store port.OrderStore
}

func NewSaleHistoryProjector(store port.OrderStore) *SaleHistoryProjector {
	return &SaleHistoryProjector{store: store}
}

// Run consumes the queue until it is closed. Intended to be started once per
// worker goroutine.
func (p *SaleHistoryProjector) Run(id int, queue <-chan domain.CommittedOrder) {
	for order := range queue {
		records := Project(order)

		var err error
		for attempt := 1; attempt <= projectionAttempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), projectionTimeout)
			err = p.store.InsertSaleHistory(ctx, records)
			cancel()
			if err == nil {
				break
			}
			log.Printf("projector %d: attempt %d failed for order %s: %v",
				id, attempt, order.OrderID, err)
		}
		if err != nil {
			log.Printf("projector %d: CRITICAL dropped projection for order %s: %v",
				id, order.OrderID, err)
		}
	}
}
