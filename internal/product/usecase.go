package product

import (
	"context"
)

type searchUseCase struct {
	service Service
}

func NewSearchUseCase(service Service) SearchUseCase {
	return &searchUseCase{service: service}
}

func (uc *searchUseCase) SearchProducts(ctx context.Context, req SearchProductsRequest) (*SearchProductsResponse, error) {
	found, notFoundIDs, err := uc.service.GetProductsByIDs(ctx, req.ProductIDs)
	if err != nil {
		return nil, err
	}

	products := make([]ProductDTO, 0, len(found))
	for _, p := range found {
		products = append(products, ProductDTO{
			ID:       p.ID,
			Title:    p.Title,
			Price:    p.Price,
			Quantity: p.Quantity,
			InStock:  p.Quantity > 0,
		})
	}

	if notFoundIDs == nil {
		notFoundIDs = []string{}
	}

	return &SearchProductsResponse{
		Products: products,
		NotFound: notFoundIDs,
	}, nil
}
