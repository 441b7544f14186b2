package usecase

import (
	"context"

	"bazaar/internal/domain"
	apperrors "bazaar/internal/errors"

	"go.uber.org/zap"
)

type OrderLister interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}

type ListOrdersUseCase struct {
	orders OrderLister
	logger *zap.Logger
}

func NewListOrdersUseCase(orders OrderLister, logger *zap.Logger) *ListOrdersUseCase {
	return &ListOrdersUseCase{orders: orders, logger: logger}
}

// ListMyOrders returns the caller's orders, newest first.
func (uc *ListOrdersUseCase) ListMyOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := uc.orders.ListByUser(ctx, userID)
	if err != nil {
		uc.logger.Error("failed to list orders", zap.String("userId", userID), zap.Error(err))
		return nil, apperrors.NewPersistenceError("listing orders", err)
	}

	uc.logger.Debug("orders listed", zap.String("userId", userID), zap.Int("count", len(orders)))
	return orders, nil
}
