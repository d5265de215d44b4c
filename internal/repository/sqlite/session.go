package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/mockinterview/pkg/models"
)

const sessionColumns = `s.id, s.role_id, COALESCE(r.title, ''), s.voice_enabled, s.created_at, s.ended_at, s.duration, s.score`

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var (
		s        models.Session
		voice    int
		created  int64
		ended    sql.NullInt64
		duration sql.NullInt64
		score    sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.RoleID, &s.RoleTitle, &voice, &created, &ended, &duration, &score); err != nil {
		return nil, err
	}
	s.VoiceEnabled = voice != 0
	s.CreatedAt = fromMillis(created)
	s.EndedAt = nullTime(ended)
	s.DurationMinutes = nullInt(duration)
	s.Score = nullInt(score)
	return &s, nil
}

// CreateSession inserts s. An empty ID is filled with a random UUID and a zero
// CreatedAt with the current time.
func (r *SQLiteRepo) CreateSession(ctx context.Context, s *models.Session) error {
	if s == nil {
		return fmt.Errorf("session is nil")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = fromMillis(now())
	}
	voice := 0
	if s.VoiceEnabled {
		voice = 1
	}
	if _, err := r.conn.Exec(ctx, `INSERT INTO sessions (id, role_id, voice_enabled, created_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.RoleID, voice, s.CreatedAt.UTC().UnixMilli()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions s LEFT JOIN role_templates r ON r.id = s.role_id WHERE s.id = ?`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// ListSessions returns sessions most recent first. A non-positive limit
// returns every session.
func (r *SQLiteRepo) ListSessions(ctx context.Context, limit, offset int) ([]models.Session, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.conn.QueryRows(ctx, `SELECT `+sessionColumns+` FROM sessions s LEFT JOIN role_templates r ON r.id = s.role_id ORDER BY s.created_at DESC, s.rowid DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []models.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// EndSession closes the session lifecycle. Duration is the number of whole
// minutes between creation and endedAt.
func (r *SQLiteRepo) EndSession(ctx context.Context, id string, endedAt time.Time, score *int) (*models.Session, error) {
	var scoreArg any
	if score != nil {
		scoreArg = *score
	}
	ended := endedAt.UTC().UnixMilli()
	res, err := r.conn.Exec(ctx, `UPDATE sessions SET ended_at = ?, duration = MAX(0, (? - created_at) / 60000), score = COALESCE(?, score) WHERE id = ?`,
		ended, ended, scoreArg, id)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}
	return r.GetSession(ctx, id)
}
