package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/angelmondragon/resale-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCatalogMigrationGuardsStock(t *testing.T) {
	assertContains(t, readMigration(t, "create_catalog"), []string{
		"CREATE TABLE IF NOT EXISTS product_variants",
		"CONSTRAINT chk_product_variants_stock CHECK (stock >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_product_variants_default",
		"DROP TABLE IF EXISTS product_variants",
	})
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	assertContains(t, readMigration(t, "create_orders"), []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CONSTRAINT chk_orders_single_customer CHECK ((user_id IS NULL) <> (guest_contact IS NULL))",
		"CONSTRAINT chk_orders_pickup_outlet",
		"CREATE INDEX IF NOT EXISTS idx_orders_abandonment",
		"CREATE TABLE IF NOT EXISTS order_line_items",
		"CONSTRAINT chk_order_line_items_quantity CHECK (quantity >= 1)",
		"DROP TABLE IF EXISTS orders",
	})
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.Validate(migrate.Embedded()); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	if err := migrate.Validate(os.DirFS("migrations")); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestValidateRejectsBrokenFiles(t *testing.T) {
	ok := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"bad name": {
			"create_orders.sql": {Data: []byte(ok)},
		},
		"duplicate version": {
			"20260301090000_a.sql": {Data: []byte(ok)},
			"20260301090000_b.sql": {Data: []byte(ok)},
		},
		"missing down": {
			"20260301090000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
		"down before up": {
			"20260301090000_a.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			if err := migrate.Validate(fsys); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestNewFileWritesValidMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)

	path, err := migrate.NewFile(dir, "Add tracking index!", now)
	if err != nil {
		t.Fatalf("new file: %v", err)
	}
	if filepath.Base(path) != "20260401083000_add_tracking_index.sql" {
		t.Fatalf("unexpected file name %s", filepath.Base(path))
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration invalid: %v", err)
	}
	if _, err := migrate.NewFile(dir, "add tracking index", now); err == nil {
		t.Fatalf("expected an error when the file already exists")
	}
	if _, err := migrate.NewFile(dir, "!!!", now); err == nil {
		t.Fatalf("expected an error for an unusable name")
	}
}

func TestNewRunnerRequiresDB(t *testing.T) {
	if _, err := migrate.NewRunner(nil, migrate.Embedded(), nil); err == nil {
		t.Fatalf("expected error without db")
	}
}
