package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/order-core/internal/core/domain"
)

func TestProject_OneRecordPerLine(t *testing.T) {
	orderDate := time.Now()
	order := domain.CommittedOrder{
		OrderID:    "order-1",
		CustomerID: 42,
		OrderDate:  orderDate,
		Lines: []domain.OrderLine{
			{ProductID: 1, Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("0.10")},
		},
	}

	records := Project(order)
	require.Len(t, records, 2)

	assert.Equal(t, "order-1", records[0].OrderID)
	assert.Equal(t, int64(42), records[0].CustomerID)
	assert.Equal(t, int64(1), records[0].ProductID)
	assert.Equal(t, 3, records[0].Quantity)
	assert.Equal(t, orderDate, records[0].OrderDate)
	assert.True(t, records[0].TotalAmount.Equal(decimal.RequireFromString("59.97")))

	assert.True(t, records[1].TotalAmount.Equal(decimal.RequireFromString("0.10")))
	assert.NotEmpty(t, records[0].SaleID)
	assert.NotEqual(t, records[0].SaleID, records[1].SaleID)
}

func TestProjector_ReprojectionAddsNothing(t *testing.T) {
	store := newMockStore()
	projector := NewSaleHistoryProjector(store)

	order := domain.CommittedOrder{
		OrderID:    "order-1",
		CustomerID: 42,
		OrderDate:  time.Now(),
		Lines: []domain.OrderLine{
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("5.00")},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("3.00")},
		},
	}

	queue := make(chan domain.CommittedOrder, 10)
	queue <- order
	queue <- order // replayed delivery
	close(queue)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		projector.Run(0, queue)
	}()
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.sales, 2, "duplicate projection must be absorbed")
}

// fails the first N inserts, then behaves like mockStore
type flakyStore struct {
	*mockStore
	mu       sync.Mutex
	failures int
}

func (f *flakyStore) InsertSaleHistory(ctx context.Context, records []domain.SaleHistoryRecord) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("transient store fault")
	}
	f.mu.Unlock()
	return f.mockStore.InsertSaleHistory(ctx, records)
}

func TestProjector_RetriesTransientFailures(t *testing.T) {
	store := &flakyStore{mockStore: newMockStore(), failures: 2}
	projector := NewSaleHistoryProjector(store)

	queue := make(chan domain.CommittedOrder, 1)
	queue <- domain.CommittedOrder{
		OrderID:    "order-1",
		CustomerID: 42,
		OrderDate:  time.Now(),
		Lines: []domain.OrderLine{
			{ProductID: 1, Quantity: 1, UnitPrice: decimal.RequireFromString("7.00")},
		},
	}
	close(queue)

	projector.Run(0, queue)

	store.mockStore.mu.Lock()
	defer store.mockStore.mu.Unlock()
	key := fmt.Sprintf("%s|%d", "order-1", int64(1))
	_, ok := store.mockStore.sales[key]
	assert.True(t, ok, "record must land after retries")
}
