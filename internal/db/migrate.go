package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Migrate applies migrations and seed files. It creates a `schema_migrations`
// table to track applied migrations and applies any SQL files under
// `migrations/` that have not yet been recorded. Seeds under `seed/` are
// applied idempotently: evaluation schemas are refreshed, role templates are
// only inserted when missing so operator edits survive restarts.
func Migrate(ctx context.Context, d *DB, migrationFS fs.FS, seedFS fs.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	const migDir = "migrations"
	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		if err := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version).Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec migration %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		logger.Info("db: migration applied", slog.String("version", version))
	}

	if seedFS == nil {
		return nil
	}
	return seed(ctx, d, seedFS)
}

func seed(ctx context.Context, d *DB, seedFS fs.FS) error {
	schemas, err := fs.Glob(seedFS, "seed/evaluation_schema_*.json")
	if err != nil {
		return fmt.Errorf("glob schema seeds: %w", err)
	}
	for _, p := range schemas {
		b, err := fs.ReadFile(seedFS, p)
		if err != nil {
			return fmt.Errorf("read schema seed %s: %w", p, err)
		}
		version := strings.TrimSuffix(strings.TrimPrefix(path.Base(p), "evaluation_schema_"), ".json")
		if _, err := d.Exec(ctx, `INSERT INTO evaluation_schemas (version, description, schema_json, created, updated) VALUES (?, ?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(version) DO UPDATE SET schema_json=excluded.schema_json, updated=strftime('%s','now')`,
			version, "default evaluation schema "+version, string(b)); err != nil {
			return fmt.Errorf("seed schema %s: %w", version, err)
		}
	}

	b, err := fs.ReadFile(seedFS, "seed/roles.yaml")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read role seed: %w", err)
	}
	n, err := SeedRoles(ctx, d, b, false)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("db: role templates seeded", slog.Int("count", n))
	}
	return nil
}

// RoleSeed is one role template entry of a YAML seed file.
type RoleSeed struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Difficulty  string   `yaml:"difficulty"`
	Questions   []string `yaml:"questions"`
}

type roleSeedFile struct {
	Roles []RoleSeed `yaml:"roles"`
}

// ParseRoleSeed decodes a YAML role seed document.
func ParseRoleSeed(b []byte) ([]RoleSeed, error) {
	var f roleSeedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode role seed: %w", err)
	}
	for i, r := range f.Roles {
		if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.Title) == "" {
			return nil, fmt.Errorf("role seed entry %d: id and title are required", i)
		}
	}
	return f.Roles, nil
}

// SeedRoles inserts the role templates in b. Existing templates are replaced
// only when overwrite is set. It returns the number of rows written.
func SeedRoles(ctx context.Context, d *DB, b []byte, overwrite bool) (int, error) {
	roles, err := ParseRoleSeed(b)
	if err != nil {
		return 0, err
	}

	stmt := `INSERT INTO role_templates (id, title, description, difficulty, questions_pool, created, updated) VALUES (?, ?, ?, ?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(id) DO NOTHING`
	if overwrite {
		stmt = `INSERT INTO role_templates (id, title, description, difficulty, questions_pool, created, updated) VALUES (?, ?, ?, ?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(id) DO UPDATE SET title=excluded.title, description=excluded.description, difficulty=excluded.difficulty, questions_pool=excluded.questions_pool, updated=excluded.updated`
	}

	written := 0
	for _, r := range roles {
		questions := r.Questions
		if questions == nil {
			questions = []string{}
		}
		pool, err := json.Marshal(questions)
		if err != nil {
			return written, fmt.Errorf("encode questions for %s: %w", r.ID, err)
		}
		difficulty := r.Difficulty
		if difficulty == "" {
			difficulty = "mid"
		}
		res, err := d.Exec(ctx, stmt, r.ID, r.Title, r.Description, difficulty, string(pool))
		if err != nil {
			return written, fmt.Errorf("seed role %s: %w", r.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			written++
		}
	}
	return written, nil
}
