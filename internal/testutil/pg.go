package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/ops-portal/internal/infra/db"
	"github.com/Spok95/ops-portal/migrations"
)

// DSNEnv names the postgres DSN the repository tests run against.
const DSNEnv = "PORTAL_TEST_DSN"

// PgPool migrates a fresh schema on the database named by PORTAL_TEST_DSN and returns a pool
// whose connections all use it. The schema is dropped when the test ends. Without the
// variable the test is skipped.
func PgPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	base := os.Getenv(DSNEnv)
	if base == "" {
		t.Skip(DSNEnv + " not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_portal_%d", time.Now().UnixNano()%1_000_000_000)

	admin, err := pgx.Connect(ctx, base)
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	_ = admin.Close(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn, err := pgx.Connect(context.Background(), base)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close(context.Background()) }()
		_, _ = conn.Exec(context.Background(), "DROP SCHEMA IF EXISTS "+schema+" CASCADE")
	})

	dsn, err := withSearchPath(base, schema)
	require.NoError(t, err)

	sqlDB, err := goose.OpenDBWithDriver("postgres", dsn)
	require.NoError(t, err)
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)
	err = goose.Up(sqlDB, ".")
	_ = sqlDB.Close()
	require.NoError(t, err)

	pool, err := db.Connect(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func withSearchPath(dsn, schema string) (string, error) {
	if !strings.Contains(dsn, "://") {
		return dsn + " search_path=" + schema, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SeedCustomer inserts a customer and returns its id.
func SeedCustomer(t *testing.T, q db.Querier, name string) int64 {
	t.Helper()
	var id int64
	err := q.QueryRow(context.Background(),
		`INSERT INTO customer (name) VALUES ($1) RETURNING customer_id`, name).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedProduct inserts a product with the given stock.
func SeedProduct(t *testing.T, q db.Querier, sku string, stock int64) {
	t.Helper()
	_, err := q.Exec(context.Background(),
		`INSERT INTO product (sku, name, stock, price) VALUES ($1,$2,$3,$4)`,
		sku, "Product "+sku, stock, decimal.NewFromInt(100))
	require.NoError(t, err)
}

// StockOf reads the stock column of sku.
func StockOf(t *testing.T, q db.Querier, sku string) int64 {
	t.Helper()
	var n int64
	err := q.QueryRow(context.Background(), `SELECT stock FROM product WHERE sku = $1`, sku).Scan(&n)
	require.NoError(t, err)
	return n
}
