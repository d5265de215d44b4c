package repository

import (
	"context"
	"time"

	"github.com/garnizeh/mockinterview/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.
// Getters return (nil, nil) when the record does not exist.

type SessionRepo interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context, limit, offset int) ([]models.Session, error)
	// EndSession sets ended_at, the derived duration and the optional score.
	EndSession(ctx context.Context, id string, endedAt time.Time, score *int) (*models.Session, error)
}

type TranscriptRepo interface {
	// AppendEntry stores e and returns it with the store-assigned seq and timestamp.
	AppendEntry(ctx context.Context, e *models.TranscriptEntry) (*models.TranscriptEntry, error)
	ListEntries(ctx context.Context, sessionID string) ([]models.TranscriptEntry, error)
	// TailEntries returns the last n entries in ascending seq order.
	TailEntries(ctx context.Context, sessionID string, n int) ([]models.TranscriptEntry, error)
	CountEntries(ctx context.Context, sessionID string) (int, error)
}

type RoleRepo interface {
	GetRole(ctx context.Context, id string) (*models.RoleTemplate, error)
	ListRoles(ctx context.Context) ([]models.RoleTemplate, error)
	UpsertRole(ctx context.Context, r *models.RoleTemplate) error
	DeleteRole(ctx context.Context, id string) error
}

type EvaluationRepo interface {
	// CreateEvaluationIfAbsent keeps the first evaluation stored for a session
	// and returns the stored row.
	CreateEvaluationIfAbsent(ctx context.Context, e *models.Evaluation) (*models.Evaluation, error)
	GetEvaluation(ctx context.Context, sessionID string) (*models.Evaluation, error)
}

type SchemaRepo interface {
	CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error)
	GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error)
	ListSchemas(ctx context.Context) ([]models.Schema, error)
}

// Store groups every contract the interview service needs.
type Store interface {
	SessionRepo
	TranscriptRepo
	RoleRepo
	EvaluationRepo
}
