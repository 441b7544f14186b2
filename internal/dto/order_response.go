package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderResponse struct {
	TraceID         string             `json:"traceId,omitempty"`
	ID              string             `json:"id"`
	UserID          string             `json:"userId"`
	Items           []LineItemResponse `json:"products"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
	ShippingAddress string             `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	DeliveryCharge  decimal.Decimal    `json:"deliveryCharge"`
	IsPaid          bool               `json:"isPaid"`
	Status          string             `json:"status"`
	CheckoutState   string             `json:"checkoutState,omitempty"`
	Replayed        bool               `json:"replayed,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
}

type LineItemResponse struct {
	ProductID string          `json:"product"`
	Title     string          `json:"title,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderListResponse struct {
	TraceID string          `json:"traceId"`
	Orders  []OrderResponse `json:"orders"`
}

type PreviewResponse struct {
	TraceID        string             `json:"traceId"`
	Items          []LineItemResponse `json:"products"`
	ItemsTotal     decimal.Decimal    `json:"itemsTotal"`
	DeliveryCharge decimal.Decimal    `json:"deliveryCharge"`
	TotalAmount    decimal.Decimal    `json:"totalAmount"`
	PaymentMethod  string             `json:"paymentMethod"`
}

type ErrorResponse struct {
	TraceID   string               `json:"traceId"`
	Status    int                  `json:"status"`
	Message   string               `json:"message"`
	Code      string               `json:"code"`
	Details   *CheckoutErrorDetail `json:"details,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// CheckoutErrorDetail is only filled for rejections, where the buyer can act
// on it.
type CheckoutErrorDetail struct {
	ProductID string `json:"productId,omitempty"`
	Title     string `json:"title,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
	State     string `json:"checkoutState,omitempty"`
}
