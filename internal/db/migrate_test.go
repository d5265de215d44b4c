package db_test

import (
	"context"
	"path/filepath"
	"testing"

	dbfs "github.com/garnizeh/mockinterview/db"
	"github.com/garnizeh/mockinterview/internal/db"
)

func openTemp(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var count int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 migration recorded, got %d", count)
	}

	for _, table := range []string{"sessions", "transcripts", "role_templates", "evaluations", "evaluation_schemas"} {
		var name string
		if err := d.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name); err != nil {
			t.Fatalf("expected table %s: %v", table, err)
		}
	}

	var roles int
	if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM role_templates`).Scan(&roles); err != nil {
		t.Fatalf("count roles: %v", err)
	}
	if roles != 7 {
		t.Fatalf("expected 7 seeded roles, got %d", roles)
	}

	var schemaJSON string
	if err := d.QueryRow(ctx, `SELECT schema_json FROM evaluation_schemas WHERE version = 'v1'`).Scan(&schemaJSON); err != nil {
		t.Fatalf("expected v1 evaluation schema: %v", err)
	}
}

func TestMigrate_SeedKeepsOperatorEdits(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if _, err := d.Exec(ctx, `UPDATE role_templates SET title = 'Edited' WHERE id = 'software-engineer'`); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	var title string
	if err := d.QueryRow(ctx, `SELECT title FROM role_templates WHERE id = 'software-engineer'`).Scan(&title); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if title != "Edited" {
		t.Fatalf("expected operator edit to survive reseed, got %q", title)
	}
}

func TestSeedRoles(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)
	if err := db.Migrate(ctx, d, dbfs.Migrations, nil); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	doc := []byte("roles:\n  - id: sre\n    title: SRE\n    questions: [\"What is an SLO?\"]\n")
	n, err := db.SeedRoles(ctx, d, doc, false)
	if err != nil || n != 1 {
		t.Fatalf("SeedRoles: n=%d err=%v", n, err)
	}

	// without overwrite the second run is a no-op
	n, err = db.SeedRoles(ctx, d, []byte("roles:\n  - id: sre\n    title: Site Reliability\n"), false)
	if err != nil || n != 0 {
		t.Fatalf("SeedRoles no-overwrite: n=%d err=%v", n, err)
	}

	n, err = db.SeedRoles(ctx, d, []byte("roles:\n  - id: sre\n    title: Site Reliability\n"), true)
	if err != nil || n != 1 {
		t.Fatalf("SeedRoles overwrite: n=%d err=%v", n, err)
	}

	var title, difficulty string
	if err := d.QueryRow(ctx, `SELECT title, difficulty FROM role_templates WHERE id = 'sre'`).Scan(&title, &difficulty); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if title != "Site Reliability" || difficulty != "mid" {
		t.Fatalf("unexpected role row: %q %q", title, difficulty)
	}
}

func TestParseRoleSeed_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "::: not yaml :::"},
		{"missing id", "roles:\n  - title: X\n"},
		{"missing title", "roles:\n  - id: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.ParseRoleSeed([]byte(tt.doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
