package contracts

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	EventID   string         `json:"event_id"`
	OrderID   string         `json:"order_id"`
	CreatedAt time.Time      `json:"created_at"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
}

const (
	EventOrderPlaced            = "order.placed"
	EventReconciliationRequired = "order.reconciliation_required"
)

func NewEvent(eventType, orderID string, payload map[string]any, now time.Time) Event {
	return Event{
		EventID:   uuid.NewString(),
		OrderID:   orderID,
		CreatedAt: now,
		Type:      eventType,
		Payload:   payload,
	}
}
