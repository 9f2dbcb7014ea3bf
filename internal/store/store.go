// Package store seeds and cleans up test data in the shop's PostgreSQL
// database. Scenarios that need known catalogue or customer state go through
// here instead of clicking it together in the UI.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/api/schemas"
	"github.com/xkilldash9x/sockshop-e2e/internal/config"
)

// DBPool abstracts pgxpool.Pool so tests can substitute a mock.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Store is the PostgreSQL-backed test-data repository.
type Store struct {
	pool  DBPool
	log   *zap.Logger
	close func()
}

// Close releases the underlying pool, when the store owns one.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// New wraps an existing pool and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Connect opens a pool against the configured database.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN(true))
	if err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = int32(cfg.MinConnections)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}

	store, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	store.close = pool.Close
	logger.Info("connected to test database", zap.String("dsn", cfg.DSN(false)))
	return store, nil
}

// rollback discards a transaction, tolerating the already-committed case.
func (s *Store) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		s.log.Error("failed to rollback transaction", zap.Error(err))
	}
}

// SeedProducts bulk-inserts products and their variants in one transaction.
// Every row is stamped with the source marker so CleanupBySource can find it
// later.
func (s *Store) SeedProducts(ctx context.Context, source string, products []schemas.Product) error {
	if len(products) == 0 {
		return nil
	}
	for i := range products {
		if err := products[i].Validate(); err != nil {
			return fmt.Errorf("product %d invalid: %w", i, err)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	productRows := make([][]any, len(products))
	var variantRows [][]any
	for i, p := range products {
		productRows[i] = []any{
			p.ID, p.Name, p.Slug, p.Description, p.CategoryID,
			string(p.Status), p.Brand, source, p.CreatedAt.UTC(),
		}
		for _, v := range p.Variants {
			variantRows = append(variantRows, []any{
				v.ID, p.ID, v.SKU, string(v.Size), v.Color,
				string(v.Material), v.Price.Cents, string(v.Price.Currency),
			})
		}
	}

	count, err := tx.CopyFrom(ctx,
		pgx.Identifier{"products"},
		[]string{"id", "name", "slug", "description", "category_id", "status", "brand", "source", "created_at"},
		pgx.CopyFromRows(productRows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy products: %w", err)
	}
	if int(count) != len(products) {
		return fmt.Errorf("copied %d of %d products", count, len(products))
	}

	if len(variantRows) > 0 {
		count, err = tx.CopyFrom(ctx,
			pgx.Identifier{"product_variants"},
			[]string{"id", "product_id", "sku", "size", "color", "material", "price_cents", "currency"},
			pgx.CopyFromRows(variantRows),
		)
		if err != nil {
			return fmt.Errorf("failed to copy variants: %w", err)
		}
		if int(count) != len(variantRows) {
			return fmt.Errorf("copied %d of %d variants", count, len(variantRows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("seeded products",
		zap.Int("products", len(products)), zap.Int("variants", len(variantRows)))
	return nil
}

// SeedUsers bulk-inserts customer accounts.
func (s *Store) SeedUsers(ctx context.Context, users []*schemas.User) error {
	if len(users) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	rows := make([][]any, len(users))
	for i, u := range users {
		if err := u.Credentials.Validate(); err != nil {
			return fmt.Errorf("user %d invalid: %w", i, err)
		}
		rows[i] = []any{
			u.ID, u.Credentials.Username, u.Credentials.Email,
			u.Profile.FirstName, u.Profile.LastName,
			string(u.Role), string(u.Status), u.EmailVerified,
			u.Audit.Source, u.CreatedAt.UTC(),
		}
	}

	count, err := tx.CopyFrom(ctx,
		pgx.Identifier{"users"},
		[]string{"id", "username", "email", "first_name", "last_name", "role", "status", "email_verified", "source", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to copy users: %w", err)
	}
	if int(count) != len(users) {
		return fmt.Errorf("copied %d of %d users", count, len(users))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("seeded users", zap.Int("count", len(users)))
	return nil
}

// CountProducts returns the catalogue size.
func (s *Store) CountProducts(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// ProductBySlug fetches a seeded product with its variants.
func (s *Store) ProductBySlug(ctx context.Context, slug string) (*schemas.Product, error) {
	var p schemas.Product
	var status string
	var createdAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, description, category_id, status, brand, created_at
		 FROM products WHERE slug = $1`, slug).
		Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.CategoryID, &status, &p.Brand, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no product with slug %q", slug)
		}
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	p.Status = schemas.ProductStatus(status)
	p.CreatedAt = createdAt

	rows, err := s.pool.Query(ctx,
		`SELECT id, sku, size, color, material, price_cents, currency
		 FROM product_variants WHERE product_id = $1 ORDER BY sku`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v schemas.Variant
		var size, material, currency string
		var cents int64
		if err := rows.Scan(&v.ID, &v.SKU, &size, &v.Color, &material, &cents, &currency); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		v.Size = schemas.SockSize(size)
		v.Material = schemas.SockMaterial(material)
		v.Price = schemas.NewMoney(cents, schemas.Currency(currency))
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read variants: %w", err)
	}
	return &p, nil
}

// CleanupBySource deletes seeded users and products stamped with the given
// audit source. Returns how many rows were removed in total.
func (s *Store) CleanupBySource(ctx context.Context, source string) (int64, error) {
	if strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("cleanup requires a non-empty source marker")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	var total int64
	tag, err := tx.Exec(ctx,
		"DELETE FROM product_variants WHERE product_id IN (SELECT id FROM products WHERE source = $1)", source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete variants: %w", err)
	}
	total += tag.RowsAffected()

	tag, err = tx.Exec(ctx, "DELETE FROM products WHERE source = $1", source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	total += tag.RowsAffected()

	tag, err = tx.Exec(ctx, "DELETE FROM users WHERE source = $1", source)
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	total += tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Info("cleaned up seeded data",
		zap.String("source", source), zap.Int64("rows", total))
	return total, nil
}
