package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"bazaar/internal/domain"
	"bazaar/internal/errors"
)

type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]domain.Order)}
}

func cloneOrder(o domain.Order) domain.Order {
	items := make([]domain.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func (r *MemoryOrderRepository) Create(_ context.Context, order domain.Order) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = uuid.NewString()
	r.orders[order.ID] = cloneOrder(order)

	out := cloneOrder(order)
	return &out, nil
}

func (r *MemoryOrderRepository) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	out := cloneOrder(order)
	return &out, nil
}

func (r *MemoryOrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []domain.Order{}
	for _, o := range r.orders {
		if o.UserID == userID {
			orders = append(orders, cloneOrder(o))
		}
	}

	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *MemoryOrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
