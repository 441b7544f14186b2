package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/domain"
	"bazaar/internal/errors"
	"bazaar/internal/product"
)

// MemoryRepository keeps the catalog in process. A mutex makes each
// decrement a single compare-and-subtract step.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

var _ product.Store = (*MemoryRepository)(nil)

func NewMemoryRepository(seed ...domain.Product) *MemoryRepository {
	r := &MemoryRepository{products: make(map[string]domain.Product, len(seed))}
	for _, p := range seed {
		r.products[p.ID] = p
	}
	return r
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
	}
	return &p, nil
}

func (r *MemoryRepository) FindByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var products []domain.Product
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.products[id]; ok {
			products = append(products, p)
		}
	}

	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (r *MemoryRepository) DecrementStock(_ context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return errors.NewValidationError("quantity must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return errors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
	}
	if p.Quantity < quantity {
		return errors.NewInsufficientStockError(p.ID, p.Title, p.Quantity, quantity)
	}

	p.Quantity -= quantity
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

func (r *MemoryRepository) Save(_ context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return nil, errors.NewConflictError(fmt.Sprintf("product with id %s already exists", p.ID))
	}
	r.products[p.ID] = p
	return &p, nil
}
