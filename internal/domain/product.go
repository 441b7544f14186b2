package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string
	Title     string
	Price     decimal.Decimal
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultProductQuantity is the stock a listing starts with when the seller
// does not set one.
const DefaultProductQuantity = 10

func (p Product) CanFulfil(quantity int) bool {
	return quantity > 0 && quantity <= p.Quantity
}
