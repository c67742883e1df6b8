package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/storefront/order-core/internal/adapter/handler"
	"github.com/storefront/order-core/internal/adapter/storage"
	"github.com/storefront/order-core/internal/config"
	"github.com/storefront/order-core/internal/core/service"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	ledger := storage.NewRedisLedger(rdb)
	store := storage.NewMySQLStore(db)

	// Seed the ledger from the catalog so stock and prices are served from
	// Redis while MySQL stays the system of record.
	products, err := store.ListProducts(ctx)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	for _, p := range products {
		if err := ledger.SeedStock(ctx, p.ID, p.StockQuantity, p.Price); err != nil {
			log.Fatalf("failed to seed stock for product %d: %v", p.ID, err)
		}
	}
	log.Printf("seeded stock for %d products", len(products))

	writer := service.NewOrderWriter(ledger, store, cfg.QueueSize, cfg.ReserveTimeout)
	projector := service.NewSaleHistoryProjector(store)

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			projector.Run(id, writer.ProjectionQueue())
		}(i)
	}
	log.Printf("started %d projection workers", cfg.WorkerCount)

	// HTTP
	router := gin.Default()
	router.Use(handler.PrometheusMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	orderHandler := handler.NewOrderHandler(writer, store, ledger)
	orderHandler.Register(router)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		// Requests may still be in flight; the writer drops their
		// projection hand-off instead of panicking on the closed queue.
		log.Printf("HTTP server shutdown: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	writer.Close()
	wg.Wait()
	log.Println("projection workers stopped")

	rdb.Close()
	db.Close()
	log.Println("connections closed")
}
