package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/order-core/internal/core/domain"
	"github.com/storefront/order-core/internal/port"
)

const releaseTimeout = 5 * time.Second

// OrderWriter validates and persists new orders atomically. Every failure
// path leaves the stock ledger as if the order never happened.
type OrderWriter struct {
	ledger          port.StockLedger
	store           port.OrderStore
	projectionQueue chan domain.CommittedOrder
	reserveTimeout  time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewOrderWriter(ledger port.StockLedger, store port.OrderStore, queueSize int, reserveTimeout time.Duration) *OrderWriter {
	return &OrderWriter{
		ledger:          ledger,
		store:           store,
		projectionQueue: make(chan domain.CommittedOrder, queueSize),
		reserveTimeout:  reserveTimeout,
	}
}

// PlaceOrder reserves stock for every line, computes the exact total, and
// commits header + lines + stock deltas as one durable unit. The committed
// order is then handed to the projection queue.
func (w *OrderWriter) PlaceOrder(ctx context.Context, customerID int64, requests []domain.LineRequest) (string, error) {
	if len(requests) == 0 {
		return "", domain.ErrEmptyOrder
	}
	for _, req := range requests {
		if req.Quantity <= 0 {
			return "", domain.ErrInvalidQuantity
		}
	}
	requests = mergeLines(requests)

	reserved := make([]domain.Reservation, 0, len(requests))
	for _, req := range requests {
		rctx, cancel := context.WithTimeout(ctx, w.reserveTimeout)
		res, err := w.ledger.Reserve(rctx, req.ProductID, req.Quantity)
		cancel()
		if err != nil {
			w.releaseAll(reserved)
			if errors.Is(err, context.DeadlineExceeded) {
				return "", domain.ErrReserveTimeout
			}
			return "", err
		}
		reserved = append(reserved, res)
	}

	now := time.Now()
	lines := make([]domain.OrderLine, len(reserved))
	total := decimal.Zero
	for i, res := range reserved {
		lines[i] = domain.OrderLine{
			ProductID: res.ProductID,
			Quantity:  res.Quantity,
			UnitPrice: res.UnitPrice,
		}
		total = total.Add(lines[i].Subtotal())
	}

	order := domain.Order{
		ID:          uuid.New().String(),
		CustomerID:  customerID,
		Status:      domain.OrderStatusCommitted,
		TotalAmount: total,
		OrderDate:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := w.store.CreateOrder(ctx, order, lines); err != nil {
		w.releaseAll(reserved)
		return "", &domain.PersistenceError{Err: err}
	}

	for _, res := range reserved {
		if err := w.ledger.Commit(ctx, res); err != nil {
			log.Printf("order %s: failed to mark reservation committed for product %d: %v",
				order.ID, res.ProductID, err)
		}
	}

	w.enqueue(domain.CommittedOrder{
		OrderID:    order.ID,
		CustomerID: customerID,
		OrderDate:  now,
		Lines:      lines,
	})

	return order.ID, nil
}

// mergeLines coalesces requests for the same product into one line, so every
// committed order holds at most one order_details row per product.
func mergeLines(requests []domain.LineRequest) []domain.LineRequest {
	merged := make([]domain.LineRequest, 0, len(requests))
	index := make(map[int64]int, len(requests))
	for _, req := range requests {
		if i, ok := index[req.ProductID]; ok {
			merged[i].Quantity += req.Quantity
			continue
		}
		index[req.ProductID] = len(merged)
		merged = append(merged, req)
	}
	return merged
}

// enqueue drops the projection when the queue is already closed, so a request
// still in flight during shutdown cannot panic on the closed channel.
func (w *OrderWriter) enqueue(order domain.CommittedOrder) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		log.Printf("order %s: projection queue closed, dropping projection", order.OrderID)
		return
	}
	w.projectionQueue <- order
}

// releaseAll runs on its own context so compensation still happens when the
// caller's context is already dead.
func (w *OrderWriter) releaseAll(reserved []domain.Reservation) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	for _, res := range reserved {
		if err := w.ledger.Release(ctx, res); err != nil {
			log.Printf("CRITICAL: failed to release %d units of product %d: %v",
				res.Quantity, res.ProductID, err)
		}
	}
}

func (w *OrderWriter) ProjectionQueue() <-chan domain.CommittedOrder {
	return w.projectionQueue
}

func (w *OrderWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.projectionQueue)
}
