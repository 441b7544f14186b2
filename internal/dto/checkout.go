package dto

import (
	"github.com/shopspring/decimal"

	"bazaar/internal/domain"
)

type CheckoutState string

const (
	CheckoutValidating CheckoutState = "VALIDATING"
	CheckoutCreating   CheckoutState = "CREATING"
	CheckoutCommitting CheckoutState = "COMMITTING"
	CheckoutCompleted  CheckoutState = "COMPLETED"
	CheckoutRejected   CheckoutState = "REJECTED"
	CheckoutFailed     CheckoutState = "FAILED"
)

func (s CheckoutState) Terminal() bool {
	return s == CheckoutCompleted || s == CheckoutRejected || s == CheckoutFailed
}

type LineItemRequest struct {
	ProductID string
	Quantity  int
}

// PlaceOrderCommand is one checkout attempt. UserID comes from the verified
// caller identity, never from the request body.
type PlaceOrderCommand struct {
	UserID          string
	Items           []LineItemRequest
	ShippingAddress string
	PaymentMethod   domain.PaymentMethod
	IdempotencyKey  string
}

type CheckoutResult struct {
	Order    *domain.Order
	State    CheckoutState
	Replayed bool
}

type OrderPreview struct {
	Items          []domain.LineItem
	ItemsTotal     decimal.Decimal
	DeliveryCharge decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentMethod  domain.PaymentMethod
}
