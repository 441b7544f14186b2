package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"bazaar/internal/domain"
	"bazaar/internal/dto"
	apperrors "bazaar/internal/errors"

	"go.uber.org/zap"
)

type ProductReader interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
}

// StockValidator checks a cart against current stock and prices it. It
// never writes to the catalog.
type StockValidator struct {
	catalog ProductReader
	logger  *zap.Logger
}

func NewStockValidator(catalog ProductReader, logger *zap.Logger) *StockValidator {
	return &StockValidator{
		catalog: catalog,
		logger:  logger,
	}
}

// Validate returns one priced line item per distinct product, in the order
// products first appear. Any missing product or short stock rejects the
// whole cart.
func (v *StockValidator) Validate(ctx context.Context, requests []dto.LineItemRequest) ([]domain.LineItem, error) {
	merged, err := mergeRequests(requests)
	if err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(merged))
	for _, req := range merged {
		product, err := v.catalog.FindByID(ctx, req.ProductID)
		if err != nil {
			if _, ok := apperrors.IsNotFoundError(err); ok {
				v.logger.Info("product not found", zap.String("productId", req.ProductID))
				return nil, apperrors.NewProductNotFoundError(req.ProductID)
			}
			return nil, fmt.Errorf("looking up product %s: %w", req.ProductID, err)
		}

		if !product.CanFulfil(req.Quantity) {
			v.logger.Info("insufficient stock",
				zap.String("productId", product.ID),
				zap.Int("available", product.Quantity),
				zap.Int("requested", req.Quantity),
			)
			return nil, apperrors.NewInsufficientStockError(product.ID, product.Title, product.Quantity, req.Quantity)
		}

		items = append(items, domain.LineItem{
			ProductID:    product.ID,
			ProductTitle: product.Title,
			Quantity:     req.Quantity,
			UnitPrice:    product.Price,
		})
	}

	return items, nil
}

func mergeRequests(requests []dto.LineItemRequest) ([]dto.LineItemRequest, error) {
	if len(requests) == 0 {
		return nil, apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	var details []apperrors.ValidationDetail
	merged := make([]dto.LineItemRequest, 0, len(requests))
	index := make(map[string]int, len(requests))

	for i, req := range requests {
		id := strings.TrimSpace(req.ProductID)
		if id == "" {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(i) + "].productId",
				Message: "productId is required",
			})
			continue
		}
		if req.Quantity < 1 {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(i) + "].quantity",
				Message: "quantity must be a positive integer",
			})
			continue
		}

		if pos, ok := index[id]; ok {
			merged[pos].Quantity += req.Quantity
			continue
		}
		index[id] = len(merged)
		merged = append(merged, dto.LineItemRequest{ProductID: id, Quantity: req.Quantity})
	}

	if len(details) > 0 {
		return nil, apperrors.NewValidationError("validation failed", details...)
	}

	return merged, nil
}
