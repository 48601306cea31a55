package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ProductLookup resolves a product identifier to its current name and price.
// Implementations return an error matching ErrNotFound when the product does not exist.
type ProductLookup interface {
	Lookup(ctx context.Context, productID string) (Product, error)
}

// LookupFunc adapts a plain function to ProductLookup.
type LookupFunc func(ctx context.Context, productID string) (Product, error)

func (f LookupFunc) Lookup(ctx context.Context, productID string) (Product, error) {
	return f(ctx, productID)
}
