package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garnizeh/mockinterview/pkg/models"
)

// AppendEntry assigns seq and timestamp inside the INSERT itself so that
// concurrent writers for one session can never produce gaps, duplicates or a
// timestamp older than the previous entry.
func (r *SQLiteRepo) AppendEntry(ctx context.Context, e *models.TranscriptEntry) (*models.TranscriptEntry, error) {
	if e == nil {
		return nil, fmt.Errorf("transcript entry is nil")
	}
	if !e.Speaker.Valid() {
		return nil, fmt.Errorf("invalid speaker %q", e.Speaker)
	}

	var audio any
	if e.AudioURL != "" {
		audio = e.AudioURL
	}

	out := *e
	var created int64
	row := r.conn.QueryRow(ctx, `INSERT INTO transcripts (session_id, seq, speaker, content, audio_url, created_at)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, MAX(?, COALESCE(MAX(created_at), 0))
		FROM transcripts WHERE session_id = ?
		RETURNING id, seq, created_at`,
		e.SessionID, string(e.Speaker), e.Content, audio, now(), e.SessionID)
	if err := row.Scan(&out.ID, &out.Seq, &created); err != nil {
		return nil, fmt.Errorf("append transcript entry: %w", err)
	}
	out.CreatedAt = fromMillis(created)
	return &out, nil
}

const entryColumns = `id, session_id, seq, speaker, content, audio_url, created_at`

func scanEntries(rows *sql.Rows) ([]models.TranscriptEntry, error) {
	defer rows.Close()

	out := []models.TranscriptEntry{}
	for rows.Next() {
		var (
			e       models.TranscriptEntry
			speaker string
			audio   sql.NullString
			created int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &speaker, &e.Content, &audio, &created); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		e.Speaker = models.Speaker(speaker)
		e.AudioURL = audio.String
		e.CreatedAt = fromMillis(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) ListEntries(ctx context.Context, sessionID string) ([]models.TranscriptEntry, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+entryColumns+` FROM transcripts WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list transcript: %w", err)
	}
	return scanEntries(rows)
}

func (r *SQLiteRepo) TailEntries(ctx context.Context, sessionID string, n int) ([]models.TranscriptEntry, error) {
	if n <= 0 {
		return r.ListEntries(ctx, sessionID)
	}
	rows, err := r.conn.QueryRows(ctx, `SELECT `+entryColumns+` FROM (
		SELECT `+entryColumns+` FROM transcripts WHERE session_id = ? ORDER BY seq DESC LIMIT ?
	) ORDER BY seq ASC`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("tail transcript: %w", err)
	}
	return scanEntries(rows)
}

func (r *SQLiteRepo) CountEntries(ctx context.Context, sessionID string) (int, error) {
	var n int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM transcripts WHERE session_id = ?`, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transcript: %w", err)
	}
	return n, nil
}
