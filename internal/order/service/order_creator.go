package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bazaar/internal/domain"
	apperrors "bazaar/internal/errors"

	"go.uber.org/zap"
)

type OrderLedger interface {
	Create(ctx context.Context, order domain.Order) (*domain.Order, error)
}

type OrderCreator struct {
	ledger         OrderLedger
	deliveryCharge decimal.Decimal
	now            func() time.Time
	logger         *zap.Logger
}

func NewOrderCreator(ledger OrderLedger, deliveryCharge decimal.Decimal, logger *zap.Logger) *OrderCreator {
	return &OrderCreator{
		ledger:         ledger,
		deliveryCharge: deliveryCharge,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         logger,
	}
}

func (c *OrderCreator) DeliveryCharge() decimal.Decimal {
	return c.deliveryCharge
}

// Create persists a pending order for already validated items. A ledger
// failure comes back as PersistenceError; the catalog is never touched here.
func (c *OrderCreator) Create(
	ctx context.Context,
	userID string,
	items []domain.LineItem,
	shippingAddress string,
	method domain.PaymentMethod,
) (*domain.Order, error) {
	address := strings.TrimSpace(shippingAddress)
	if address == "" {
		return nil, apperrors.NewInvalidAddressError("shipping address is required")
	}
	if _, ok := domain.ParsePaymentMethod(string(method)); !ok {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "paymentMethod",
			Message: "paymentMethod must be one of Card, UPI, COD",
		})
	}

	order := domain.NewOrder(userID, items, address, method, c.deliveryCharge, c.now())

	created, err := c.ledger.Create(ctx, order)
	if err != nil {
		c.logger.Error("failed to persist order",
			zap.String("userId", userID),
			zap.Int("itemCount", len(items)),
			zap.Error(err),
		)
		return nil, apperrors.NewPersistenceError("creating order", err)
	}

	c.logger.Info("order persisted",
		zap.String("orderId", created.ID),
		zap.String("userId", userID),
		zap.String("totalAmount", created.TotalAmount.String()),
		zap.String("paymentMethod", string(method)),
	)

	return created, nil
}
