package store

import (
	"context"

	"github.com/fjod/go_cart/cart-store/internal/domain"
)

// Resource names used in NotFoundError.
const (
	ResourceCart     = "cart"
	ResourceCartItem = "cart item"
	ResourceProduct  = "product"
)

// CartStore defines the per-user cart operations.
// Every returned cart is a copy owned by the caller.
type CartStore interface {
	// AddItem resolves productID through lookup and merges it into the user's cart,
	// creating the cart on first use. Existing lines keep their original price and name.
	AddItem(ctx context.Context, userID, productID string, quantity int, lookup domain.ProductLookup) (*domain.Cart, error)

	// RemoveItem drops the line for productID. Removing an absent line is a no-op.
	RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error)

	// UpdateQuantity overwrites the quantity of an existing line.
	UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error)

	// Get returns the user's cart.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Delete removes the user's cart entirely.
	Delete(ctx context.Context, userID string) error

	// Len reports how many carts are held.
	Len() int
}
