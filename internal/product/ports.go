package product

import (
	"context"

	"bazaar/internal/domain"
)

type SearchUseCase interface {
	SearchProducts(ctx context.Context, req SearchProductsRequest) (*SearchProductsResponse, error)
}

type Service interface {
	GetProductsByIDs(ctx context.Context, ids []string) (found []domain.Product, notFoundIDs []string, err error)
}

type Repository interface {
	FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
}

// Catalog is what checkout needs from a product store. DecrementStock must
// be a single conditional update that never drives quantity below zero.
type Catalog interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	DecrementStock(ctx context.Context, id string, quantity int) error
}

// Store is implemented by every product repository.
type Store interface {
	Repository
	Catalog
}
