package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garnizeh/mockinterview/pkg/models"
)

// questions_pool is stored as a JSON array; callers only see []string.

func scanRole(row interface{ Scan(...any) error }) (*models.RoleTemplate, error) {
	var (
		t    models.RoleTemplate
		pool string
	)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Difficulty, &pool, &t.Updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(pool), &t.Questions); err != nil {
		return nil, fmt.Errorf("decode questions pool for %s: %w", t.ID, err)
	}
	if t.Questions == nil {
		t.Questions = []string{}
	}
	return &t, nil
}

func (r *SQLiteRepo) GetRole(ctx context.Context, id string) (*models.RoleTemplate, error) {
	row := r.conn.QueryRow(ctx, `SELECT id, title, description, difficulty, questions_pool, updated FROM role_templates WHERE id = ?`, id)
	t, err := scanRole(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepo) ListRoles(ctx context.Context) ([]models.RoleTemplate, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT id, title, description, difficulty, questions_pool, updated FROM role_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	out := []models.RoleTemplate{}
	for rows.Next() {
		t, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) UpsertRole(ctx context.Context, t *models.RoleTemplate) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("role id is required")
	}
	questions := t.Questions
	if questions == nil {
		questions = []string{}
	}
	pool, err := json.Marshal(questions)
	if err != nil {
		return fmt.Errorf("encode questions pool: %w", err)
	}
	difficulty := t.Difficulty
	if difficulty == "" {
		difficulty = "mid"
	}
	_, err = r.conn.Exec(ctx, `INSERT INTO role_templates (id, title, description, difficulty, questions_pool, created, updated) VALUES (?, ?, ?, ?, ?, strftime('%s','now'), strftime('%s','now')) ON CONFLICT(id) DO UPDATE SET title=excluded.title, description=excluded.description, difficulty=excluded.difficulty, questions_pool=excluded.questions_pool, updated=strftime('%s','now')`,
		t.ID, t.Title, t.Description, difficulty, string(pool))
	if err != nil {
		return fmt.Errorf("upsert role: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) DeleteRole(ctx context.Context, id string) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM role_templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}
