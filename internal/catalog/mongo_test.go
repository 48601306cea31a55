package catalog

import (
	"context"
	"testing"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupMongo(t *testing.T) *MongoCatalog {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Client().Disconnect(ctx) })

	c := NewMongoCatalog(db)
	require.NoError(t, c.CreateIndexes(ctx))
	require.NoError(t, c.Seed(ctx, DefaultProducts))
	return c
}

func TestMongoCatalog(t *testing.T) {
	c := setupMongo(t)
	ctx := context.Background()

	t.Run("lookup seeded product", func(t *testing.T) {
		p, err := c.Lookup(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "Produto A", p.Name)
		assert.True(t, p.Price.Equal(decimal.NewFromInt(10)))
	})

	t.Run("lookup missing product", func(t *testing.T) {
		_, err := c.Lookup(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("seed does not overwrite", func(t *testing.T) {
		_, err := c.Add(ctx, domain.Product{ID: "2", Name: "Produto B", Price: decimal.NewFromInt(25)})
		require.NoError(t, err)
		require.NoError(t, c.Seed(ctx, DefaultProducts))

		p, err := c.Lookup(ctx, "2")
		require.NoError(t, err)
		assert.True(t, p.Price.Equal(decimal.NewFromInt(25)))
	})

	t.Run("add and list", func(t *testing.T) {
		added, err := c.Add(ctx, domain.Product{Name: "Produto C", Price: decimal.RequireFromString("0.35")})
		require.NoError(t, err)
		assert.NotEmpty(t, added.ID)

		got, err := c.Lookup(ctx, added.ID)
		require.NoError(t, err)
		assert.Equal(t, "0.35", got.Price.String())

		products, err := c.List(ctx)
		require.NoError(t, err)
		assert.Len(t, products, 3)
	})
}
