package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/catalog"
	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/fjod/go_cart/cart-store/internal/events"
	"github.com/fjod/go_cart/cart-store/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockPublisher struct {
	m      sync.Mutex
	events []events.Event
	err    error
}

func (p *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	p.m.Lock()
	defer p.m.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *mockPublisher) Types() []events.Type {
	p.m.Lock()
	defer p.m.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type invalidatingLookup struct {
	domain.ProductLookup
	invalidated []string
	err         error
}

func (l *invalidatingLookup) Invalidate(_ context.Context, id string) error {
	l.invalidated = append(l.invalidated, id)
	return l.err
}

func setupService(t *testing.T, opts ...Option) (*CartService, *mockPublisher, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	pub := &mockPublisher{}
	svc := NewCartService(store.NewMemoryStore(), catalog.NewStaticCatalog(catalog.DefaultProducts...), pub, zap.New(core), opts...)
	return svc, pub, logs
}

func TestCartService_Lifecycle(t *testing.T) {
	svc, pub, _ := setupService(t)
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "u1", "1", 2)
	require.NoError(t, err)
	assert.Equal(t, "20", cart.Total.String())

	cart, err = svc.UpdateQuantity(ctx, "u1", "1", 5)
	require.NoError(t, err)
	assert.Equal(t, "50", cart.Total.String())

	cart, err = svc.RemoveItem(ctx, "u1", "1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	got, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.Total.IsZero())
	assert.Equal(t, 1, svc.CartCount())

	require.NoError(t, svc.DeleteCart(ctx, "u1"))
	assert.Equal(t, 0, svc.CartCount())

	assert.Equal(t, []events.Type{
		events.ItemAdded,
		events.QuantityUpdated,
		events.ItemRemoved,
		events.CartDeleted,
	}, pub.Types())
	assert.Nil(t, pub.events[3].Cart)
	assert.Equal(t, "u1", pub.events[0].UserID)
	assert.Equal(t, "20", pub.events[0].Cart.Total.String())
}

func TestCartService_FailuresPublishNothing(t *testing.T) {
	svc, pub, logs := setupService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "999", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.AddItem(ctx, "", "1", 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = svc.DeleteCart(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, pub.Types())
	assert.Equal(t, 3, logs.FilterMessage("cart request rejected").FilterLevelExact(zapcore.DebugLevel).Len())
}

func TestCartService_DependencyFailureLoggedAsWarning(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	lookup := domain.LookupFunc(func(context.Context, string) (domain.Product, error) {
		return domain.Product{}, domain.NewDependencyError("catalog", errors.New("down"))
	})
	svc := NewCartService(store.NewMemoryStore(), lookup, nil, zap.New(core))

	_, err := svc.AddItem(context.Background(), "u1", "1", 1)
	assert.ErrorIs(t, err, domain.ErrDependency)

	entries := logs.FilterMessage("cart dependency failure").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "add item", entries[0].ContextMap()["op"])
}

func TestCartService_PublishFailureKeepsMutation(t *testing.T) {
	svc, pub, logs := setupService(t)
	pub.err = errors.New("broker down")
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, "u1", "1", 1)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	got, err := svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	entries := logs.FilterMessage("publish cart event failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "cart.item_added", entries[0].ContextMap()["event_type"])
}

func TestCartService_PublishOutlivesRequestContext(t *testing.T) {
	svc, pub, _ := setupService(t, WithPublishTimeout(time.Second))

	_, err := svc.AddItem(context.Background(), "u1", "1", 1)
	require.NoError(t, err)

	// removal does not block, so it commits even after the caller gave up
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.RemoveItem(ctx, "u1", "1")
	require.NoError(t, err)

	assert.Equal(t, []events.Type{events.ItemAdded, events.ItemRemoved}, pub.Types())
}

func TestCartService_Products(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)

	added, err := svc.AddProduct(ctx, domain.Product{ID: "3", Name: "Produto C", Price: decimal.NewFromInt(30)})
	require.NoError(t, err)
	assert.Equal(t, "3", added.ID)

	cart, err := svc.AddItem(ctx, "u1", "3", 1)
	require.NoError(t, err)
	assert.Equal(t, "30", cart.Total.String())

	_, err = svc.AddProduct(ctx, domain.Product{Name: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCartService_ReadOnlyCatalog(t *testing.T) {
	lookup := domain.LookupFunc(func(context.Context, string) (domain.Product, error) {
		return domain.Product{}, nil
	})
	svc := NewCartService(store.NewMemoryStore(), lookup, nil, nil)

	_, err := svc.ListProducts(context.Background())
	assert.ErrorIs(t, err, ErrCatalogReadOnly)

	_, err = svc.AddProduct(context.Background(), domain.Product{Name: "x"})
	assert.ErrorIs(t, err, ErrCatalogReadOnly)
}

func TestCartService_AddProductInvalidatesCache(t *testing.T) {
	static := catalog.NewStaticCatalog()
	lookup := &invalidatingLookup{ProductLookup: static, err: errors.New("redis down")}
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewCartService(store.NewMemoryStore(), lookup, nil, zap.New(core), WithCatalog(static, static))

	added, err := svc.AddProduct(context.Background(), domain.Product{Name: "Produto D", Price: decimal.NewFromInt(4)})
	require.NoError(t, err)
	assert.Equal(t, []string{added.ID}, lookup.invalidated)
	assert.Equal(t, 1, logs.FilterMessage("product cache invalidate failed").Len())
}
