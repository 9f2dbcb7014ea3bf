package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/sockshop-e2e/api/schemas"
)

// flexibleSQL builds a whitespace-insensitive regex for SQL expectations.
func flexibleSQL(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectPing()
	s, err := New(context.Background(), mock, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, mock
}

func seedableProduct() schemas.Product {
	p := schemas.NewSimpleProduct("Classic Crew Socks",
		"Everyday cotton crew socks in black.",
		"cat-basics", "SOCK-COT-001", schemas.NewMoney(999, schemas.USD))
	return *p
}

func TestNewFailsWhenPingFails(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	_, err = New(context.Background(), mock, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping")
}

func TestSeedProducts(t *testing.T) {
	s, mock := newMockStore(t)
	p := seedableProduct()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"products"}, []string{
		"id", "name", "slug", "description", "category_id", "status", "brand", "source", "created_at",
	}).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"product_variants"}, []string{
		"id", "product_id", "sku", "size", "color", "material", "price_cents", "currency",
	}).WillReturnResult(1)
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := s.SeedProducts(context.Background(), "e2e-run-1", []schemas.Product{p})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedProductsRejectsInvalidEntries(t *testing.T) {
	s, mock := newMockStore(t)

	bad := seedableProduct()
	bad.Description = "short"

	err := s.SeedProducts(context.Background(), "e2e-run-1", []schemas.Product{bad})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet(), "no SQL runs for invalid input")
}

func TestSeedProductsRollsBackOnCopyFailure(t *testing.T) {
	s, mock := newMockStore(t)
	p := seedableProduct()

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"products"}, []string{
		"id", "name", "slug", "description", "category_id", "status", "brand", "source", "created_at",
	}).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := s.SeedProducts(context.Background(), "e2e-run-1", []schemas.Product{p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy products")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedUsers(t *testing.T) {
	s, mock := newMockStore(t)
	user := schemas.NewUser("sock_fan42", "fan@example.com", "Sam", "Weaver")

	mock.ExpectBegin()
	mock.ExpectCopyFrom(pgx.Identifier{"users"}, []string{
		"id", "username", "email", "first_name", "last_name", "role", "status", "email_verified", "source", "created_at",
	}).WillReturnResult(1)
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := s.SeedUsers(context.Background(), []*schemas.User{user})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountProducts(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(flexibleSQL("SELECT COUNT(*) FROM products")).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(12))

	count, err := s.CountProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductBySlug(t *testing.T) {
	s, mock := newMockStore(t)
	p := seedableProduct()

	mock.ExpectQuery(flexibleSQL(
		`SELECT id, name, slug, description, category_id, status, brand, created_at
		 FROM products WHERE slug = $1`)).
		WithArgs("classic-crew-socks").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "slug", "description", "category_id", "status", "brand", "created_at",
		}).AddRow(p.ID, p.Name, p.Slug, p.Description, p.CategoryID, "active", p.Brand, p.CreatedAt))

	mock.ExpectQuery(flexibleSQL(
		`SELECT id, sku, size, color, material, price_cents, currency
		 FROM product_variants WHERE product_id = $1 ORDER BY sku`)).
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "sku", "size", "color", "material", "price_cents", "currency",
		}).AddRow(p.Variants[0].ID, "SOCK-COT-001", "m", "Black", "cotton", int64(999), "USD"))

	got, err := s.ProductBySlug(context.Background(), "classic-crew-socks")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, schemas.ProductActive, got.Status)
	require.Len(t, got.Variants, 1)
	assert.Equal(t, schemas.SizeM, got.Variants[0].Size)
	assert.Equal(t, int64(999), got.Variants[0].Price.Cents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductBySlugNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(flexibleSQL(
		`SELECT id, name, slug, description, category_id, status, brand, created_at
		 FROM products WHERE slug = $1`)).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "slug", "description", "category_id", "status", "brand", "created_at",
		}))

	_, err := s.ProductBySlug(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestCleanupBySource(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(flexibleSQL(
		"DELETE FROM product_variants WHERE product_id IN (SELECT id FROM products WHERE source = $1)")).
		WithArgs("e2e-run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(flexibleSQL("DELETE FROM products WHERE source = $1")).
		WithArgs("e2e-run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(flexibleSQL("DELETE FROM users WHERE source = $1")).
		WithArgs("e2e-run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCommit()
	mock.ExpectRollback()

	total, err := s.CleanupBySource(context.Background(), "e2e-run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCleanupBySourceRequiresMarker(t *testing.T) {
	s, _ := newMockStore(t)
	_, err := s.CleanupBySource(context.Background(), "   ")
	require.Error(t, err)
}
