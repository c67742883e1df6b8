package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storefront/order-core/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/shop?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	return db
}

func seedCatalog(t *testing.T, db *sql.DB, productID int64, stock int, price string) {
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `
		INSERT INTO categories (id, name) VALUES (1, 'test-category')
		ON DUPLICATE KEY UPDATE name = name`)
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO customers (id, first_name, last_name, email, password)
		VALUES (1, 'Test', 'Customer', 'test@example.com', 'x')
		ON DUPLICATE KEY UPDATE email = email`)
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO products (id, category_id, name, description, price, stock_quantity)
		VALUES (?, 1, 'test-product', '', ?, ?)
		ON DUPLICATE KEY UPDATE price = ?, stock_quantity = ?`,
		productID, price, stock, price, stock)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func testOrder(customerID int64) domain.Order {
	now := time.Now().Truncate(time.Second)
	return domain.Order{
		ID:          uuid.New().String(),
		CustomerID:  customerID,
		Status:      domain.OrderStatusCommitted,
		TotalAmount: decimal.RequireFromString("39.98"),
		OrderDate:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateOrder_HeaderAndLinesCommitTogether(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)
	seedCatalog(t, db, 201, 100, "19.99")

	order := testOrder(1)
	lines := []domain.OrderLine{
		{ProductID: 201, Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")},
	}

	if err := store.CreateOrder(ctx, order, lines); err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	defer func() {
		db.ExecContext(ctx, `DELETE FROM order_details WHERE order_id = ?`, order.ID)
		db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, order.ID)
	}()

	got, gotLines, err := store.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got == nil {
		t.Fatal("order not found")
	}
	if !got.TotalAmount.Equal(order.TotalAmount) {
		t.Errorf("expected total %s, got %s", order.TotalAmount, got.TotalAmount)
	}
	if len(gotLines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(gotLines))
	}
	if !gotLines[0].UnitPrice.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("expected unit price 19.99, got %s", gotLines[0].UnitPrice)
	}

	var stock int
	db.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id = 201`).Scan(&stock)
	if stock != 98 {
		t.Errorf("expected stock 98, got %d", stock)
	}
}

func TestCreateOrder_StockConflictRollsBackEverything(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)
	seedCatalog(t, db, 202, 1, "10.00")

	order := testOrder(1)
	lines := []domain.OrderLine{
		{ProductID: 202, Quantity: 5, UnitPrice: decimal.RequireFromString("10.00")},
	}

	err := store.CreateOrder(ctx, order, lines)
	if !errors.Is(err, ErrStockConflict) {
		t.Fatalf("expected ErrStockConflict, got: %v", err)
	}

	// Nothing may survive the rollback: no header, no lines, stock intact.
	got, _, err := store.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if got != nil {
		t.Error("expected no order row after rollback")
	}

	var stock int
	db.QueryRowContext(ctx, `SELECT stock_quantity FROM products WHERE id = 202`).Scan(&stock)
	if stock != 1 {
		t.Errorf("expected stock 1, got %d", stock)
	}
}

func TestGetProduct(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)
	seedCatalog(t, db, 203, 50, "4.25")

	p, err := store.GetProduct(ctx, 203)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if p == nil {
		t.Fatal("expected product, got nil")
	}
	if !p.Price.Equal(decimal.RequireFromString("4.25")) {
		t.Errorf("expected price 4.25, got %s", p.Price)
	}
	if p.StockQuantity != 50 {
		t.Errorf("expected stock 50, got %d", p.StockQuantity)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	store := NewMySQLStore(db)

	p, err := store.GetProduct(context.Background(), 987654321)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Error("expected nil for nonexistent product")
	}
}

func TestInsertSaleHistory_DuplicatesAbsorbed(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)

	orderID := uuid.New().String()
	rec := domain.SaleHistoryRecord{
		SaleID:      uuid.New().String(),
		OrderID:     orderID,
		CustomerID:  1,
		ProductID:   204,
		Quantity:    2,
		OrderDate:   time.Now().Truncate(time.Second),
		TotalAmount: decimal.RequireFromString("8.50"),
	}

	if err := store.InsertSaleHistory(ctx, []domain.SaleHistoryRecord{rec}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	defer db.ExecContext(ctx, `DELETE FROM sale_history WHERE order_id = ?`, orderID)

	// Replayed projection: same order/product, fresh sale ID.
	rec.SaleID = uuid.New().String()
	if err := store.InsertSaleHistory(ctx, []domain.SaleHistoryRecord{rec}); err != nil {
		t.Fatalf("second insert failed: %v", err)
	}

	var count int
	db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sale_history WHERE order_id = ? AND product_id = 204`, orderID,
	).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 sale_history row, got %d", count)
	}
}
