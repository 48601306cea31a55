package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteCatalog stores products in a SQLite database. Prices are kept as
// decimal strings so no precision is lost on the way in or out.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens the database at dbPath (":memory:" is allowed)
// and applies the embedded migrations.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &SQLiteCatalog{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCatalog) runMigrations() error {
	driver, err := sqlite.WithInstance(c.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (c *SQLiteCatalog) Lookup(ctx context.Context, productID string) (domain.Product, error) {
	const query = `SELECT id, name, price FROM products WHERE id = ?`

	p, err := scanProduct(c.db.QueryRowContext(ctx, query, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.NewNotFoundError(resourceProduct, productID)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (c *SQLiteCatalog) List(ctx context.Context) ([]domain.Product, error) {
	const query = `SELECT id, name, price FROM products ORDER BY created_at, id`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (c *SQLiteCatalog) Add(ctx context.Context, p domain.Product) (domain.Product, error) {
	p, err := prepare(p)
	if err != nil {
		return domain.Product{}, err
	}

	const query = `
		INSERT INTO products (id, name, price) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, price = excluded.price
	`
	if _, err := c.db.ExecContext(ctx, query, p.ID, p.Name, p.Price.String()); err != nil {
		return domain.Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price); err != nil {
		return domain.Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price %q for product %s: %w", price, p.ID, err)
	}
	p.Price = d
	return p, nil
}
