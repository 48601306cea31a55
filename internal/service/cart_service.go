package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/catalog"
	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/fjod/go_cart/cart-store/internal/events"
	"github.com/fjod/go_cart/cart-store/internal/store"
	"github.com/fjod/go_cart/cart-store/pkg/logger"
	"go.uber.org/zap"
)

// ErrCatalogReadOnly is returned by ListProducts and AddProduct when the configured
// catalog cannot enumerate or accept products.
var ErrCatalogReadOnly = errors.New("catalog does not support this operation")

// invalidator is implemented by caching lookups that must forget a product after it changes.
type invalidator interface {
	Invalidate(ctx context.Context, productID string) error
}

type CartService struct {
	store     store.CartStore
	lookup    domain.ProductLookup
	publisher events.Publisher
	log       *zap.Logger

	lister catalog.Lister
	writer catalog.Writer

	publishTimeout time.Duration
	now            func() time.Time
}

type Option func(*CartService)

// WithCatalog sets the backing catalog used for product listing and creation.
// Either may be nil.
func WithCatalog(lister catalog.Lister, writer catalog.Writer) Option {
	return func(s *CartService) {
		s.lister = lister
		s.writer = writer
	}
}

func WithPublishTimeout(d time.Duration) Option {
	return func(s *CartService) { s.publishTimeout = d }
}

func NewCartService(st store.CartStore, lookup domain.ProductLookup, pub events.Publisher, log *zap.Logger, opts ...Option) *CartService {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &CartService{
		store:          st,
		lookup:         lookup,
		publisher:      pub,
		log:            log,
		publishTimeout: 5 * time.Second,
		now:            time.Now,
	}
	// a bare catalog passed as the lookup serves listing too
	if l, ok := lookup.(catalog.Lister); ok {
		s.lister = l
	}
	if w, ok := lookup.(catalog.Writer); ok {
		s.writer = w
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	cart, err := s.store.AddItem(ctx, userID, productID, quantity, s.lookup)
	if err != nil {
		s.logFailure(ctx, "add item", err, zap.String("user_id", userID), zap.String("product_id", productID))
		return nil, err
	}

	s.publish(ctx, events.ItemAdded, userID, cart)
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	cart, err := s.store.RemoveItem(ctx, userID, productID)
	if err != nil {
		s.logFailure(ctx, "remove item", err, zap.String("user_id", userID), zap.String("product_id", productID))
		return nil, err
	}

	s.publish(ctx, events.ItemRemoved, userID, cart)
	return cart, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	cart, err := s.store.UpdateQuantity(ctx, userID, productID, quantity)
	if err != nil {
		s.logFailure(ctx, "update quantity", err, zap.String("user_id", userID), zap.String("product_id", productID))
		return nil, err
	}

	s.publish(ctx, events.QuantityUpdated, userID, cart)
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, userID)
	if err != nil {
		s.logFailure(ctx, "get cart", err, zap.String("user_id", userID))
		return nil, err
	}
	return cart, nil
}

func (s *CartService) DeleteCart(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		s.logFailure(ctx, "delete cart", err, zap.String("user_id", userID))
		return err
	}

	s.publish(ctx, events.CartDeleted, userID, nil)
	return nil
}

func (s *CartService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if s.lister == nil {
		return nil, ErrCatalogReadOnly
	}
	products, err := s.lister.List(ctx)
	if err != nil {
		s.logFailure(ctx, "list products", err)
		return nil, err
	}
	return products, nil
}

func (s *CartService) AddProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if s.writer == nil {
		return domain.Product{}, ErrCatalogReadOnly
	}
	added, err := s.writer.Add(ctx, p)
	if err != nil {
		s.logFailure(ctx, "add product", err, zap.String("product_id", p.ID))
		return domain.Product{}, err
	}

	// existing cart lines keep their price; only future additions see the new one
	if inv, ok := s.lookup.(invalidator); ok {
		if err := inv.Invalidate(ctx, added.ID); err != nil {
			logger.FromContext(ctx, s.log).Warn("product cache invalidate failed",
				zap.String("product_id", added.ID), zap.Error(err))
		}
	}
	return added, nil
}

// CartCount reports the number of carts held by the store.
func (s *CartService) CartCount() int {
	return s.store.Len()
}

// publish runs after the mutation has been committed, so a failure is only logged.
func (s *CartService) publish(ctx context.Context, t events.Type, userID string, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, events.NewEvent(t, userID, cart, s.now())); err != nil {
		logger.FromContext(ctx, s.log).Error("publish cart event failed",
			zap.String("event_type", string(t)),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func (s *CartService) logFailure(ctx context.Context, op string, err error, fields ...zap.Field) {
	l := logger.FromContext(ctx, s.log)
	fields = append(fields, zap.String("op", op), zap.Error(err))

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		l.Debug("cart request rejected", fields...)
	case errors.Is(err, domain.ErrDependency):
		l.Warn("cart dependency failure", fields...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		l.Info("cart request abandoned", fields...)
	default:
		l.Error("cart operation failed", fields...)
	}
}
