package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/domain"
	"bazaar/internal/errors"
	"bazaar/internal/product"
)

type MySQLRepository struct {
	db *sql.DB
}

var _ product.Store = (*MySQLRepository)(nil)

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

func (r *MySQLRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, title, price, quantity, createdAt, updatedAt
		FROM Product
		WHERE id = ?
	`

	var p domain.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by id: %w", err)
	}

	return &p, nil
}

func (r *MySQLRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT id, title, price, quantity, createdAt, updatedAt
		FROM Product
		WHERE id IN (%s)
		ORDER BY id`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

// DecrementStock subtracts quantity in one conditional UPDATE. When no row
// matches, a follow-up read only decides which error to report.
func (r *MySQLRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return errors.NewValidationError("quantity must be positive")
	}

	query := `UPDATE Product SET quantity = quantity - ? WHERE id = ? AND quantity >= ?`

	result, err := r.db.ExecContext(ctx, query, quantity, id, quantity)
	if err != nil {
		return fmt.Errorf("decrementing product stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 1 {
		return nil
	}

	p, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return errors.NewInsufficientStockError(p.ID, p.Title, p.Quantity, quantity)
}

func (r *MySQLRepository) Save(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt, p.UpdatedAt = now, now

	query := `INSERT INTO Product (id, title, price, quantity, createdAt, updatedAt) VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Title, p.Price, p.Quantity, p.CreatedAt, p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("inserting product: %w", err)
	}

	return &p, nil
}
