package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tiffin/internal/domain"
)

type MySQLOrderItemRepository struct {
	db *sql.DB
}

func NewMySQLOrderItemRepository(db *sql.DB) *MySQLOrderItemRepository {
	return &MySQLOrderItemRepository{db: db}
}

func (r *MySQLOrderItemRepository) Insert(ctx context.Context, tx *sql.Tx, orderID string, item domain.OrderItem) (int64, error) {
	query := `INSERT INTO order_items (order_id, product_id, name, unit_price, quantity) VALUES (?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query, orderID, item.ProductID, item.Name, item.UnitPrice, item.Quantity)
	if err != nil {
		return 0, fmt.Errorf("inserting order item: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return lastInsertID, nil
}

// FindByOrderIDs loads the line items of several orders in one query, grouped
// by order id in insertion order.
func (r *MySQLOrderItemRepository) FindByOrderIDs(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	items := make(map[string][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return items, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(orderIDs)), ", ")
	query := `
		SELECT order_id, product_id, name, unit_price, quantity
		FROM order_items
		WHERE order_id IN (` + placeholders + `)
		ORDER BY id
	`
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}

	return items, rows.Err()
}
