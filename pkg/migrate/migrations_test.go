package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateDir(embeddedDir); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
	files, err := fs.Glob(embedded, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("expected 4 embedded migrations, got %d", len(files))
	}
}

func TestOrderMigrationEnforcesIntegrity(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")
	checks := []string{
		"CONSTRAINT orders_order_number_key UNIQUE (order_number)",
		"REFERENCES orders(id) ON DELETE CASCADE",
		"CREATE TYPE payment_method AS ENUM ('card', 'cash')",
		"stripe_session_id text",
		"idempotency_key text",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEngagementMigrationUniqueness(t *testing.T) {
	content := readMigration(t, "*_create_favorites_reviews_questions.sql")
	checks := []string{
		"PRIMARY KEY (user_id, product_id)",
		"CONSTRAINT reviews_user_id_product_id_key UNIQUE (user_id, product_id)",
		"CHECK (rating BETWEEN 1 AND 5)",
		"PRIMARY KEY (review_id, user_id)",
		"PRIMARY KEY (answer_id, user_id)",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Order Notes!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_notes.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "create_things.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected invalid filename error")
	}
}

func TestValidateDirEmbeddedDefault(t *testing.T) {
	if err := ValidateDir(""); err != nil {
		t.Fatalf("embedded migrations should validate: %v", err)
	}
}

func TestCheckAnnotations(t *testing.T) {
	cases := map[string]struct {
		sql     string
		wantErr bool
	}{
		"well formed": {
			sql: "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose StatementEnd\n-- +goose Down\nSELECT 1;\n",
		},
		"missing down":       {sql: "-- +goose Up\nSELECT 1;\n", wantErr: true},
		"down before up":     {sql: "-- +goose Down\n-- +goose Up\n", wantErr: true},
		"unterminated block": {sql: "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n", wantErr: true},
		"stray end":          {sql: "-- +goose Up\n-- +goose StatementEnd\n-- +goose Down\n", wantErr: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := checkAnnotations(tc.sql)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateSQLMigrationRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	first, err := CreateSQLMigration(dir, "add index")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(first) != "20261017090000_add_index.sql" {
		t.Fatalf("unexpected filename %s", first)
	}
	if _, err := CreateSQLMigration(dir, "add index"); err == nil {
		t.Fatalf("expected existing migration to be kept")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(embeddedDir, pattern))
	if err != nil || len(matches) == 0 {
		t.Fatalf("no migration matching %s (err=%v)", pattern, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
