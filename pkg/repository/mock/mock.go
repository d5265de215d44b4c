package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/garnizeh/mockinterview/pkg/models"
	"github.com/garnizeh/mockinterview/pkg/repository"
)

var _ repository.Store = (*Store)(nil)
var _ repository.SchemaRepo = (*Store)(nil)

// Store is an in-memory implementation of the repository contracts for tests.
// The *Err fields force the matching operation to fail.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]models.Session
	entries     map[string][]models.TranscriptEntry
	roles       map[string]models.RoleTemplate
	evaluations map[string]models.Evaluation
	schemas     map[string]models.Schema
	nextID      int64

	CreateSessionErr error
	AppendErr        error
	EvaluationErr    error
	EndErr           error

	// EvaluationWrites counts stored evaluations (conflicting writes excluded).
	EvaluationWrites int
}

func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]models.Session),
		entries:     make(map[string][]models.TranscriptEntry),
		roles:       make(map[string]models.RoleTemplate),
		evaluations: make(map[string]models.Evaluation),
		schemas:     make(map[string]models.Schema),
	}
}

func (m *Store) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *Store) CreateSession(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateSessionErr != nil {
		return m.CreateSessionErr
	}
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id required")
	}
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s exists", s.ID)
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if r, ok := m.roles[s.RoleID]; ok {
		s.RoleTitle = r.Title
	}
	return &s, nil
}

func (m *Store) ListSessions(ctx context.Context, limit, offset int) ([]models.Session, error) {
	m.mu.Lock()
	out := make([]models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if r, ok := m.roles[s.RoleID]; ok {
			s.RoleTitle = r.Title
		}
		out = append(out, s)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *Store) EndSession(ctx context.Context, id string, endedAt time.Time, score *int) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EndErr != nil {
		return nil, m.EndErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	ended := endedAt.UTC()
	duration := int(ended.Sub(s.CreatedAt).Minutes())
	s.EndedAt = &ended
	s.DurationMinutes = &duration
	if score != nil {
		v := *score
		s.Score = &v
	}
	m.sessions[id] = s
	return &s, nil
}

func (m *Store) AppendEntry(ctx context.Context, e *models.TranscriptEntry) (*models.TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return nil, m.AppendErr
	}
	if e == nil || !e.Speaker.Valid() {
		return nil, fmt.Errorf("invalid transcript entry")
	}
	if _, ok := m.sessions[e.SessionID]; !ok {
		return nil, fmt.Errorf("session %s does not exist", e.SessionID)
	}

	list := m.entries[e.SessionID]
	stored := *e
	stored.ID = m.id()
	stored.Seq = len(list) + 1
	stored.CreatedAt = time.Now().UTC()
	if n := len(list); n > 0 && stored.CreatedAt.Before(list[n-1].CreatedAt) {
		stored.CreatedAt = list[n-1].CreatedAt
	}
	m.entries[e.SessionID] = append(list, stored)
	return &stored, nil
}

func (m *Store) ListEntries(ctx context.Context, sessionID string) ([]models.TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.TranscriptEntry(nil), m.entries[sessionID]...), nil
}

func (m *Store) TailEntries(ctx context.Context, sessionID string, n int) ([]models.TranscriptEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.entries[sessionID]
	if n > 0 && len(list) > n {
		list = list[len(list)-n:]
	}
	return append([]models.TranscriptEntry(nil), list...), nil
}

func (m *Store) CountEntries(ctx context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[sessionID]), nil
}

func (m *Store) GetRole(ctx context.Context, id string) (*models.RoleTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) ListRoles(ctx context.Context) ([]models.RoleTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RoleTemplate, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) UpsertRole(ctx context.Context, r *models.RoleTemplate) error {
	if r == nil || r.ID == "" {
		return fmt.Errorf("role id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[r.ID] = *r
	return nil
}

func (m *Store) DeleteRole(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.roles, id)
	return nil
}

func (m *Store) CreateEvaluationIfAbsent(ctx context.Context, e *models.Evaluation) (*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EvaluationErr != nil {
		return nil, m.EvaluationErr
	}
	if existing, ok := m.evaluations[e.SessionID]; ok {
		return &existing, nil
	}
	stored := *e
	stored.ID = m.id()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	m.evaluations[e.SessionID] = stored
	m.EvaluationWrites++
	return &stored, nil
}

func (m *Store) GetEvaluation(ctx context.Context, sessionID string) (*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evaluations[sessionID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Store) CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.id()
	m.schemas[version] = models.Schema{ID: id, Version: version, Description: description, SchemaJSON: schemaJSON}
	return id, nil
}

func (m *Store) GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schemas[version]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Store) ListSchemas(ctx context.Context) ([]models.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Schema, 0, len(m.schemas))
	for _, s := range m.schemas {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}
