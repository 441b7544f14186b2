package product

import "github.com/shopspring/decimal"

type SearchProductsRequest struct {
	ProductIDs []string `json:"productIds"`
}

type SearchProductsResponse struct {
	Products []ProductDTO `json:"products"`
	NotFound []string     `json:"notFound"`
}

type ProductDTO struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	InStock  bool            `json:"inStock"`
}
