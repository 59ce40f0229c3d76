package migrate_test

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsense/storefront-backend/pkg/config"
	"github.com/shopsense/storefront-backend/pkg/db/dbtest"
	"github.com/shopsense/storefront-backend/pkg/logger"
	"github.com/shopsense/storefront-backend/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, migrate.Validate(migrate.Migrations()))
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestMigrationsCreateStorefrontTables(t *testing.T) {
	fsys := migrate.Migrations()
	files, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)
	require.Len(t, files, 5)

	var all strings.Builder
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		require.NoError(t, err)
		all.Write(data)
	}
	content := all.String()

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS users",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users (email)",
		"CREATE TABLE IF NOT EXISTS products",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_products_product_id ON products (product_id)",
		"CREATE TABLE IF NOT EXISTS carts",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_carts_identity ON carts (identity)",
		"CREATE TABLE IF NOT EXISTS orders",
		"FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE",
		"CREATE TABLE IF NOT EXISTS events",
		"ON events (identity, created_at)",
		"DROP TABLE IF EXISTS events",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestCreateSQLMigrationWritesValidTemplate(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Product Ratings!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_product_ratings.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "carts.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))

	cases := map[string]string{
		"missing down":   "-- +goose Up\nSELECT 1;\n",
		"down before up": "-- +goose Down\n-- +goose Up\n",
		"unterminated":   "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n",
		"stray end":      "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n",
		"duplicate up":   "-- +goose Up\n-- +goose Up\n-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fsys := fstest.MapFS{"20260101000000_carts.sql": {Data: []byte(body)}}
			require.Error(t, migrate.Validate(fsys))
		})
	}

	dup := fstest.MapFS{
		"20260101000000_carts.sql":  {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_orders.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	require.ErrorContains(t, migrate.Validate(dup), "already used")
}

func TestSourcePrefersDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_x.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	_, err := fs.Stat(migrate.Source(dir), "20260101000000_x.sql")
	require.NoError(t, err)

	_, err = fs.Stat(migrate.Source(""), "20260301120000_create_users.sql")
	require.NoError(t, err)
}

func TestRunRequiresDatabase(t *testing.T) {
	require.Error(t, migrate.Run(context.Background(), nil, migrate.Migrations(), "up", nil))
	require.Error(t, migrate.MigrateToVersion(context.Background(), nil, migrate.Migrations(), "latest", nil))
}

func TestMaybeRunDevBootstrapsSQLite(t *testing.T) {
	client := dbtest.OpenClient(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	cfg := &config.Config{DB: config.DBConfig{Driver: config.DriverSQLite}}

	require.NoError(t, migrate.MaybeRunDev(context.Background(), cfg, logg, client))

	for _, table := range []string{"users", "products", "carts", "orders", "order_items", "events"} {
		assert.True(t, client.DB().Migrator().HasTable(table), table)
	}
}

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Env: "prod"},
		DB:  config.DBConfig{Driver: config.DriverPostgres},
	}
	require.NoError(t, migrate.MaybeRunDev(context.Background(), cfg, nil, nil))
}
