package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bazaar/internal/domain"
)

type MySQLOrderItemRepository struct {
	db *sql.DB
}

func NewMySQLOrderItemRepository(db *sql.DB) *MySQLOrderItemRepository {
	return &MySQLOrderItemRepository{db: db}
}

func (r *MySQLOrderItemRepository) Insert(ctx context.Context, tx *sql.Tx, orderID string, item domain.LineItem) (uint, error) {
	query := `INSERT INTO OrderItems (orderId, productId, title, quantity, price) VALUES (?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query, orderID, item.ProductID, item.ProductTitle, item.Quantity, item.UnitPrice)
	if err != nil {
		return 0, fmt.Errorf("inserting order item: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

// FindByOrderIDs groups line items by order id, in insertion order.
func (r *MySQLOrderItemRepository) FindByOrderIDs(ctx context.Context, orderIDs []string) (map[string][]domain.LineItem, error) {
	items := make(map[string][]domain.LineItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return items, nil
	}

	placeholders := make([]string, len(orderIDs))
	args := make([]interface{}, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT orderId, productId, title, quantity, price
		FROM OrderItems
		WHERE orderId IN (%s)
		ORDER BY id`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item domain.LineItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductTitle, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scanning order item row: %w", err)
		}
		items[orderID] = append(items[orderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order item rows: %w", err)
	}

	return items, nil
}
