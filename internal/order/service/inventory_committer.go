package service

import (
	"context"
	"time"

	"bazaar/internal/domain"
	apperrors "bazaar/internal/errors"

	"go.uber.org/zap"
)

type StockDecrementer interface {
	DecrementStock(ctx context.Context, id string, quantity int) error
}

type InventoryCommitter struct {
	catalog StockDecrementer
	timeout time.Duration
	logger  *zap.Logger
}

func NewInventoryCommitter(catalog StockDecrementer, timeout time.Duration, logger *zap.Logger) *InventoryCommitter {
	return &InventoryCommitter{
		catalog: catalog,
		timeout: timeout,
		logger:  logger,
	}
}

// Commit applies every decrement for a persisted order. It keeps going after
// a failure so the error lists exactly which decrements landed. The order
// already exists at this point, so caller cancellation does not stop the
// loop; only the committer's own timeout does.
func (c *InventoryCommitter) Commit(ctx context.Context, orderID string, items []domain.LineItem) error {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	var applied []apperrors.AppliedDecrement
	var failed []apperrors.FailedDecrement

	for _, item := range items {
		err := c.catalog.DecrementStock(commitCtx, item.ProductID, item.Quantity)
		if err != nil {
			failed = append(failed, apperrors.FailedDecrement{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Reason:    err.Error(),
				Err:       err,
			})
			c.logger.Warn("stock decrement failed",
				zap.String("orderId", orderID),
				zap.String("productId", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
			continue
		}

		applied = append(applied, apperrors.AppliedDecrement{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if len(failed) > 0 {
		c.logger.Error("inventory commit incomplete",
			zap.String("orderId", orderID),
			zap.Any("lineItems", items),
			zap.Any("applied", applied),
			zap.Any("failed", failed),
		)
		return apperrors.NewPartialCommitError(orderID, applied, failed)
	}

	c.logger.Info("inventory committed", zap.String("orderId", orderID), zap.Int("itemCount", len(items)))
	return nil
}
