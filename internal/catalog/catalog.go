package catalog

import (
	"context"
	"strings"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/google/uuid"
)

const resourceProduct = "product"

// Lookup is the capability the cart store consumes.
type Lookup = domain.ProductLookup

// Lister is implemented by catalogs that can enumerate their products.
type Lister interface {
	List(ctx context.Context) ([]domain.Product, error)
}

// Writer is implemented by catalogs that accept new products.
// Add replaces an existing product with the same ID.
type Writer interface {
	Add(ctx context.Context, p domain.Product) (domain.Product, error)
}

// prepare validates p and assigns an ID when none was given.
func prepare(p domain.Product) (domain.Product, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, domain.NewValidationError("name", "must not be empty")
	}
	if p.Price.IsNegative() {
		return p, domain.NewValidationError("price", "must not be negative")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return p, nil
}
