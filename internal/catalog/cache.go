package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrCacheMiss = errors.New("cache miss")

// CachedLookup is a Redis read-through cache in front of another lookup.
// Cache failures are logged and the backing lookup is used instead.
type CachedLookup struct {
	next         Lookup
	client       *redis.Client
	baseTTL      time.Duration
	fetchTimeout time.Duration      // bounds a shared backend fetch
	sfg          singleflight.Group // Prevents cache stampede
	log          *zap.Logger
}

func NewCachedLookup(next Lookup, client *redis.Client, log *zap.Logger) *CachedLookup {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedLookup{
		next:         next,
		client:       client,
		baseTTL:      5 * time.Minute,
		fetchTimeout: 5 * time.Second,
		log:          log,
	}
}

// Lookup shares one backend fetch between concurrent callers of the same product.
// The fetch is detached from any single caller, so one caller giving up does not
// fail the others; each caller still returns as soon as its own ctx is done.
func (c *CachedLookup) Lookup(ctx context.Context, productID string) (domain.Product, error) {
	ch := c.sfg.DoChan(productID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.fetch(fetchCtx, productID)
	})

	select {
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Product{}, res.Err
		}
		return res.Val.(domain.Product), nil
	}
}

func (c *CachedLookup) fetch(ctx context.Context, productID string) (domain.Product, error) {
	p, err := c.get(ctx, productID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.log.Warn("product cache get failed", zap.String("product_id", productID), zap.Error(err))
	}

	p, err = c.next.Lookup(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	if err := c.set(ctx, productID, p); err != nil {
		c.log.Warn("product cache set failed", zap.String("product_id", productID), zap.Error(err))
	}
	return p, nil
}

// Invalidate drops the cached entry for productID.
func (c *CachedLookup) Invalidate(ctx context.Context, productID string) error {
	if err := c.client.Del(ctx, cacheKey(productID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *CachedLookup) get(ctx context.Context, productID string) (domain.Product, error) {
	data, err := c.client.Get(ctx, cacheKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Product{}, ErrCacheMiss
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("redis get failed: %w", err)
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Product{}, fmt.Errorf("unmarshal product failed: %w", err)
	}
	return p, nil
}

func (c *CachedLookup) set(ctx context.Context, productID string, p domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal product failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(60)) * time.Second
	if err := c.client.Set(ctx, cacheKey(productID), data, c.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func cacheKey(productID string) string {
	return fmt.Sprintf("product:%s", productID)
}
