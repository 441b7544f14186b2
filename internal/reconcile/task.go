package reconcile

import (
	"time"

	"github.com/google/uuid"

	apperrors "bazaar/internal/errors"
)

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Task holds the stock decrements still owed by a persisted order.
type Task struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"orderId"`
	Items     []Item    `json:"items"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewTask(orderID string, failed []apperrors.FailedDecrement, now time.Time) Task {
	items := make([]Item, len(failed))
	for i, f := range failed {
		items[i] = Item{ProductID: f.ProductID, Quantity: f.Quantity}
	}
	return Task{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Items:     items,
		CreatedAt: now,
	}
}
