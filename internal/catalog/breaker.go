package catalog

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/fjod/go_cart/cart-store/pkg/circuitbreaker"
	"go.uber.org/zap"
)

// BreakerLookup guards a lookup with a circuit breaker. Not-found answers are
// healthy responses and never trip it; every other failure is reported as a
// DependencyError.
type BreakerLookup struct {
	name    string
	next    Lookup
	breaker *circuitbreaker.Breaker[domain.Product]
}

func NewBreakerLookup(next Lookup, settings circuitbreaker.Settings, log *zap.Logger) *BreakerLookup {
	settings.IsSuccessful = func(err error) bool {
		return err == nil ||
			errors.Is(err, domain.ErrNotFound) ||
			errors.Is(err, context.Canceled)
	}
	return &BreakerLookup{
		name:    settings.Name,
		next:    next,
		breaker: circuitbreaker.New[domain.Product](settings, log),
	}
}

func (b *BreakerLookup) Lookup(ctx context.Context, productID string) (domain.Product, error) {
	p, err := b.breaker.Execute(func() (domain.Product, error) {
		return b.next.Lookup(ctx, productID)
	})
	switch {
	case err == nil:
		return p, nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDependency):
		return domain.Product{}, err
	case ctx.Err() != nil:
		return domain.Product{}, ctx.Err()
	default:
		return domain.Product{}, domain.NewDependencyError(b.name, err)
	}
}
