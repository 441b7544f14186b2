package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/domain"
	"bazaar/internal/errors"
)

// MySQLOrderRepository writes the order row and its items in one
// transaction, so a failed create leaves nothing behind.
type MySQLOrderRepository struct {
	db    *sql.DB
	items *MySQLOrderItemRepository
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db, items: NewMySQLOrderItemRepository(db)}
}

// withStoredPrecision rounds the timestamps down to the millisecond that
// DATETIME(3) and BSON dates keep, so the order Create returns matches
// every later read.
func withStoredPrecision(order domain.Order) domain.Order {
	order.CreatedAt = order.CreatedAt.Truncate(time.Millisecond)
	order.UpdatedAt = order.UpdatedAt.Truncate(time.Millisecond)
	return order
}

func (r *MySQLOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	order = withStoredPrecision(order)
	order.ID = uuid.NewString()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning order transaction: %w", err)
	}
	// Rollback is a no-op once Commit succeeded.
	defer tx.Rollback()

	query := `
		INSERT INTO Orders (id, userId, totalAmount, shippingAddress, paymentMethod,
		                    deliveryCharge, isPaid, status, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.ExecContext(ctx, query,
		order.ID, order.UserID, order.TotalAmount, order.ShippingAddress, string(order.PaymentMethod),
		order.DeliveryCharge, order.IsPaid, order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting order: %w", err)
	}

	for _, item := range order.Items {
		if _, err := r.items.Insert(ctx, tx, order.ID, item); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order transaction: %w", err)
	}

	return &order, nil
}

const selectOrderColumns = `
	SELECT id, userId, totalAmount, shippingAddress, paymentMethod,
	       deliveryCharge, isPaid, status, createdAt, updatedAt
	FROM Orders
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var method string
	err := row.Scan(
		&order.ID, &order.UserID, &order.TotalAmount, &order.ShippingAddress, &method,
		&order.DeliveryCharge, &order.IsPaid, &order.Status, &order.CreatedAt, &order.UpdatedAt,
	)
	order.PaymentMethod = domain.PaymentMethod(method)
	return order, err
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrderColumns+` WHERE id = ?`, id))

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return &order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *MySQLOrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrderColumns+` WHERE userId = ? ORDER BY createdAt DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying orders by user: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	var ids []string
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}
