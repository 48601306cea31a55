package catalog

import (
	"context"
	"sync"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultProducts seeds the static catalog.
var DefaultProducts = []domain.Product{
	{ID: "1", Name: "Produto A", Price: decimal.NewFromInt(10)},
	{ID: "2", Name: "Produto B", Price: decimal.NewFromInt(20)},
}

// StaticCatalog is an in-process product catalog.
type StaticCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	order    []string
}

func NewStaticCatalog(products ...domain.Product) *StaticCatalog {
	c := &StaticCatalog{products: make(map[string]domain.Product, len(products))}
	for _, p := range products {
		c.put(p)
	}
	return c
}

func (c *StaticCatalog) put(p domain.Product) {
	if _, exists := c.products[p.ID]; !exists {
		c.order = append(c.order, p.ID)
	}
	c.products[p.ID] = p
}

func (c *StaticCatalog) Lookup(_ context.Context, productID string) (domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return domain.Product{}, domain.NewNotFoundError(resourceProduct, productID)
	}
	return p, nil
}

func (c *StaticCatalog) List(_ context.Context) ([]domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out, nil
}

func (c *StaticCatalog) Add(_ context.Context, p domain.Product) (domain.Product, error) {
	p, err := prepare(p)
	if err != nil {
		return domain.Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(p)
	return p, nil
}
