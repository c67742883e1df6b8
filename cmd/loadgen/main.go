package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/storefront/order-core/internal/adapter/storage"
	"github.com/storefront/order-core/internal/core/domain"
)

const (
	redisAddr     = "localhost:6379"
	productID     = 211
	initialStock  = 20
	totalRequests = 50
)

// Drives concurrent reservations against the real Redis ledger and asserts
// that exactly initialStock of them win.
func main() {
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	ledger := storage.NewRedisLedger(rdb)
	if err := ledger.SeedStock(ctx, productID, initialStock, decimal.RequireFromString("19.99")); err != nil {
		log.Fatalf("failed to seed stock: %v", err)
	}

	var successCount atomic.Int32
	var soldOutCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := ledger.Reserve(ctx, productID, 1)
			if err == nil {
				successCount.Add(1)
				return
			}

			var stockErr *domain.InsufficientStockError
			if errors.As(err, &stockErr) {
				soldOutCount.Add(1)
			} else {
				log.Printf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== CONTENTION RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Reserved:         %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("========================================")

	if success == int32(initialStock) && soldOut == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: exactly %d reservations succeeded\n", initialStock)
	} else {
		fmt.Printf("FAIL: expected %d success/%d sold-out, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, soldOut)
	}

	finalStock, _ := rdb.Get(ctx, fmt.Sprintf("stock:%d", productID)).Int()
	fmt.Printf("Final Stock: %d\n", finalStock)

	if finalStock == 0 {
		fmt.Println("PASS: stock depleted to 0")
	} else {
		fmt.Printf("FAIL: expected stock 0, got %d\n", finalStock)
	}
}
