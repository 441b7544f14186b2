package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "Card"
	PaymentMethodUPI  PaymentMethod = "UPI"
	PaymentMethodCOD  PaymentMethod = "COD"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodCard, PaymentMethodUPI, PaymentMethodCOD:
		return m, true
	}
	return "", false
}

// RequiresGateway reports whether the method goes through the payment
// gateway before the order is placed.
func (m PaymentMethod) RequiresGateway() bool {
	return m != PaymentMethodCOD
}

const (
	OrderStatusPending   = "Pending"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
)

var DefaultDeliveryCharge = decimal.NewFromInt(100)

// LineItem is a product and quantity inside an order, with the unit price
// captured when stock was validated.
type LineItem struct {
	ProductID    string
	ProductTitle string
	Quantity     int
	UnitPrice    decimal.Decimal
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID              string
	UserID          string
	Items           []LineItem
	TotalAmount     decimal.Decimal
	ShippingAddress string
	PaymentMethod   PaymentMethod
	DeliveryCharge  decimal.Decimal
	IsPaid          bool
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewOrder builds a pending order. TotalAmount is fixed here and never
// recomputed from live catalog prices. Non-COD orders are marked paid at
// creation.
func NewOrder(userID string, items []LineItem, shippingAddress string, method PaymentMethod, deliveryCharge decimal.Decimal, now time.Time) Order {
	copied := make([]LineItem, len(items))
	copy(copied, items)

	return Order{
		UserID:          userID,
		Items:           copied,
		TotalAmount:     ItemsTotal(items).Add(deliveryCharge),
		ShippingAddress: shippingAddress,
		PaymentMethod:   method,
		DeliveryCharge:  deliveryCharge,
		IsPaid:          method != PaymentMethodCOD,
		Status:          OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func ItemsTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
