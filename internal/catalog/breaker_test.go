package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/fjod/go_cart/cart-store/pkg/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLookup struct {
	calls atomic.Int32
	fn    func(ctx context.Context, id string) (domain.Product, error)
}

func (c *countingLookup) Lookup(ctx context.Context, id string) (domain.Product, error) {
	c.calls.Add(1)
	return c.fn(ctx, id)
}

func breakerSettings() circuitbreaker.Settings {
	s := circuitbreaker.DefaultSettings("catalog")
	s.ConsecutiveFailures = 2
	s.Timeout = time.Hour
	return s
}

func TestBreakerLookup_PassesThrough(t *testing.T) {
	next := &countingLookup{fn: NewStaticCatalog(DefaultProducts...).Lookup}
	b := NewBreakerLookup(next, breakerSettings(), nil)

	p, err := b.Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Produto A", p.Name)
}

func TestBreakerLookup_NotFoundDoesNotTrip(t *testing.T) {
	next := &countingLookup{fn: NewStaticCatalog().Lookup}
	b := NewBreakerLookup(next, breakerSettings(), nil)

	for i := 0; i < 5; i++ {
		_, err := b.Lookup(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	assert.Equal(t, int32(5), next.calls.Load())
}

func TestBreakerLookup_FailuresBecomeDependencyErrors(t *testing.T) {
	next := &countingLookup{fn: func(context.Context, string) (domain.Product, error) {
		return domain.Product{}, errors.New("connection reset")
	}}
	b := NewBreakerLookup(next, breakerSettings(), nil)

	for i := 0; i < 2; i++ {
		_, err := b.Lookup(context.Background(), "1")
		assert.ErrorIs(t, err, domain.ErrDependency)
		assert.ErrorContains(t, err, "connection reset")
	}

	// open: the backend is no longer called
	_, err := b.Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestBreakerLookup_CallerCancellation(t *testing.T) {
	next := &countingLookup{fn: func(ctx context.Context, _ string) (domain.Product, error) {
		return domain.Product{}, ctx.Err()
	}}
	b := NewBreakerLookup(next, breakerSettings(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Lookup(ctx, "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrDependency)
}
