package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/storefront/order-core/internal/core/domain"
)

// ErrStockConflict means a guarded stock decrement matched no row: either the
// product is unknown or its durable stock dropped below the ordered quantity.
var ErrStockConflict = errors.New("stock conflict")

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (m *MySQLStore) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, category_id, name, description, price, stock_quantity
		FROM products WHERE id = ?`, productID,
	).Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.StockQuantity)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MySQLStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, category_id, name, description, price, stock_quantity
		FROM products`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.StockQuantity); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CreateOrder writes the header, every line, and the stock deltas in one
// transaction. A restart can never observe a header without its lines.
func (m *MySQLStore) CreateOrder(ctx context.Context, order domain.Order, lines []domain.OrderLine) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, order_date, total_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.CustomerID, order.OrderDate, order.TotalAmount, order.Status,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, line := range lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_details (order_id, product_id, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			order.ID, line.ProductID, line.Quantity, line.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity - ?
			WHERE id = ? AND stock_quantity >= ?`,
			line.Quantity, line.ProductID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("product %d: %w", line.ProductID, ErrStockConflict)
		}
	}

	return tx.Commit()
}

func (m *MySQLStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, []domain.OrderLine, error) {
	var order domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT id, customer_id, order_date, total_amount, status, created_at, updated_at
		FROM orders WHERE id = ?`, orderID,
	).Scan(&order.ID, &order.CustomerID, &order.OrderDate, &order.TotalAmount, &order.Status,
		&order.CreatedAt, &order.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT product_id, quantity, unit_price
		FROM order_details WHERE order_id = ? ORDER BY id`, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return nil, nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	return &order, lines, rows.Err()
}

// InsertSaleHistory is idempotent: re-projecting an order is absorbed by the
// unique (order_id, product_id) key.
func (m *MySQLStore) InsertSaleHistory(ctx context.Context, records []domain.SaleHistoryRecord) error {
	for _, rec := range records {
		_, err := m.db.ExecContext(ctx, `
			INSERT INTO sale_history (sale_id, order_id, customer_id, product_id, quantity, order_date, total_amount)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE sale_id = sale_id`,
			rec.SaleID, rec.OrderID, rec.CustomerID, rec.ProductID, rec.Quantity,
			rec.OrderDate, rec.TotalAmount,
		)
		if err != nil {
			return fmt.Errorf("insert sale history: %w", err)
		}
	}
	return nil
}
