package repository

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.yaml.in/yaml/v3"

	"bazaar/internal/domain"
)

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID       string          `yaml:"id"`
	Title    string          `yaml:"title"`
	Price    decimal.Decimal `yaml:"price"`
	Quantity *int            `yaml:"quantity"`
}

// LoadSeed reads a YAML product list for the memory catalog. A listing
// without a quantity starts with domain.DefaultProductQuantity.
func LoadSeed(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	products := make([]domain.Product, 0, len(file.Products))
	seen := make(map[string]struct{}, len(file.Products))
	for i, sp := range file.Products {
		if sp.ID == "" {
			return nil, fmt.Errorf("seed product %d has no id", i)
		}
		if _, dup := seen[sp.ID]; dup {
			return nil, fmt.Errorf("seed product %s listed twice", sp.ID)
		}
		seen[sp.ID] = struct{}{}

		if sp.Price.IsNegative() {
			return nil, fmt.Errorf("seed product %s has a negative price", sp.ID)
		}

		quantity := domain.DefaultProductQuantity
		if sp.Quantity != nil {
			if *sp.Quantity < 0 {
				return nil, fmt.Errorf("seed product %s has a negative quantity", sp.ID)
			}
			quantity = *sp.Quantity
		}

		products = append(products, domain.Product{
			ID:       sp.ID,
			Title:    sp.Title,
			Price:    sp.Price,
			Quantity: quantity,
		})
	}
	return products, nil
}
