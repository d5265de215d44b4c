package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garnizeh/mockinterview/pkg/models"
)

// CreateEvaluationIfAbsent relies on the UNIQUE(session_id) constraint: a
// conflicting insert is ignored and the first stored evaluation is returned.
func (r *SQLiteRepo) CreateEvaluationIfAbsent(ctx context.Context, e *models.Evaluation) (*models.Evaluation, error) {
	if e == nil || e.SessionID == "" {
		return nil, fmt.Errorf("evaluation session id is required")
	}
	strengths, err := encodeList(e.Strengths)
	if err != nil {
		return nil, fmt.Errorf("encode strengths: %w", err)
	}
	improvements, err := encodeList(e.Improvements)
	if err != nil {
		return nil, fmt.Errorf("encode improvements: %w", err)
	}
	created := now()
	if !e.CreatedAt.IsZero() {
		created = e.CreatedAt.UTC().UnixMilli()
	}

	if _, err := r.conn.Exec(ctx, `INSERT INTO evaluations (session_id, overall_score, strengths, areas_for_improvement, detailed_feedback, created_at) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(session_id) DO NOTHING`,
		e.SessionID, e.OverallScore, strengths, improvements, e.DetailedFeedback, created); err != nil {
		return nil, fmt.Errorf("insert evaluation: %w", err)
	}

	stored, err := r.GetEvaluation(ctx, e.SessionID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("evaluation for %s missing after insert", e.SessionID)
	}
	return stored, nil
}

func (r *SQLiteRepo) GetEvaluation(ctx context.Context, sessionID string) (*models.Evaluation, error) {
	var (
		e                       models.Evaluation
		strengths, improvements string
		created                 int64
	)
	row := r.conn.QueryRow(ctx, `SELECT id, session_id, overall_score, strengths, areas_for_improvement, detailed_feedback, created_at FROM evaluations WHERE session_id = ?`, sessionID)
	if err := row.Scan(&e.ID, &e.SessionID, &e.OverallScore, &strengths, &improvements, &e.DetailedFeedback, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get evaluation: %w", err)
	}
	var err error
	if e.Strengths, err = decodeList(strengths); err != nil {
		return nil, fmt.Errorf("decode strengths: %w", err)
	}
	if e.Improvements, err = decodeList(improvements); err != nil {
		return nil, fmt.Errorf("decode improvements: %w", err)
	}
	e.CreatedAt = fromMillis(created)
	return &e, nil
}

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func decodeList(s string) ([]string, error) {
	out := []string{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
