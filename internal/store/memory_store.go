package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fjod/go_cart/cart-store/internal/domain"
)

// DefaultShards is the shard count used by NewMemoryStore.
const DefaultShards = 32

type shard struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart // userID -> cart
}

// MemoryStore implements CartStore in memory. Carts are spread over shards keyed by
// a hash of the user ID, so calls for one user serialise while other users proceed.
type MemoryStore struct {
	shards []*shard
	now    func() time.Time
}

type Option func(*MemoryStore)

// WithClock overrides the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithShards sets the shard count. Values below 1 fall back to one shard.
func WithShards(n int) Option {
	return func(s *MemoryStore) {
		if n < 1 {
			n = 1
		}
		s.shards = newShards(n)
	}
}

// NewMemoryStore creates an empty in-memory cart store
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		shards: newShards(DefaultShards),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{carts: make(map[string]*domain.Cart)}
	}
	return shards
}

func (s *MemoryStore) shardFor(userID string) *shard {
	return s.shards[xxhash.Sum64String(userID)%uint64(len(s.shards))]
}

func (s *MemoryStore) AddItem(ctx context.Context, userID, productID string, quantity int, lookup domain.ProductLookup) (*domain.Cart, error) {
	if err := validateIDs(userID, productID); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}
	if lookup == nil {
		return nil, domain.NewDependencyError("product lookup", errors.New("not configured"))
	}

	// Lookup happens before the shard is locked; nothing below may block.
	product, err := lookup.Lookup(ctx, productID)
	if err != nil {
		return nil, classifyLookupError(productID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cart, exists := sh.carts[userID]
	if !exists {
		cart = &domain.Cart{UserID: userID, Items: []domain.CartItem{}}
		sh.carts[userID] = cart
	}

	if idx := cart.IndexOf(productID); idx >= 0 {
		// an existing line implies an existing cart, so rejecting here leaves nothing behind
		if quantity > math.MaxInt-cart.Items[idx].Quantity {
			return nil, domain.NewValidationError("quantity", "too large")
		}
		cart.Items[idx].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: product.Price,
			Name:      product.Name,
		})
	}

	s.touch(cart)
	return cart.Clone(), nil
}

func (s *MemoryStore) RemoveItem(_ context.Context, userID, productID string) (*domain.Cart, error) {
	if err := validateIDs(userID, productID); err != nil {
		return nil, err
	}

	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cart, exists := sh.carts[userID]
	if !exists {
		return nil, domain.NewNotFoundError(ResourceCart, userID)
	}

	if idx := cart.IndexOf(productID); idx >= 0 {
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	}

	s.touch(cart)
	return cart.Clone(), nil
}

func (s *MemoryStore) UpdateQuantity(_ context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	if err := validateIDs(userID, productID); err != nil {
		return nil, err
	}
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cart, exists := sh.carts[userID]
	if !exists {
		return nil, domain.NewNotFoundError(ResourceCart, userID)
	}

	idx := cart.IndexOf(productID)
	if idx < 0 {
		return nil, domain.NewNotFoundError(ResourceCartItem, productID)
	}

	cart.Items[idx].Quantity = quantity
	s.touch(cart)
	return cart.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "must not be empty")
	}

	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	cart, exists := sh.carts[userID]
	if !exists {
		return nil, domain.NewNotFoundError(ResourceCart, userID)
	}
	return cart.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "must not be empty")
	}

	sh := s.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.carts[userID]; !exists {
		return domain.NewNotFoundError(ResourceCart, userID)
	}
	delete(sh.carts, userID)
	return nil
}

func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.carts)
		sh.mu.Unlock()
	}
	return n
}

// touch recomputes the cached total and stamps the cart. Caller holds the shard lock.
func (s *MemoryStore) touch(cart *domain.Cart) {
	cart.Recalculate()
	cart.LastUpdated = s.now()
}

func validateIDs(userID, productID string) error {
	if userID == "" {
		return domain.NewValidationError("user_id", "must not be empty")
	}
	if productID == "" {
		return domain.NewValidationError("product_id", "must not be empty")
	}
	return nil
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}
	return nil
}

// classifyLookupError keeps not-found and dependency answers typed and turns anything
// else coming out of the catalog into a DependencyError.
func classifyLookupError(productID string, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewNotFoundError(ResourceProduct, productID)
	case errors.Is(err, domain.ErrDependency):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return domain.NewDependencyError("product lookup", fmt.Errorf("lookup %s: %w", productID, err))
	}
}
