package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/garnizeh/mockinterview/api"
	"github.com/garnizeh/mockinterview/internal/ai"
	"github.com/garnizeh/mockinterview/internal/apperr"
	"github.com/garnizeh/mockinterview/internal/config"
	"github.com/garnizeh/mockinterview/internal/gateway"
	"github.com/garnizeh/mockinterview/internal/interview"
	"github.com/garnizeh/mockinterview/pkg/models"
	"github.com/garnizeh/mockinterview/pkg/repository/mock"
)

const testSecret = "api-test-secret"

// stubGateway answers every call; fail forces all model calls to error.
type stubGateway struct {
	mu   sync.Mutex
	fail bool
	eval string
}

func (g *stubGateway) failing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fail
}

func (g *stubGateway) Complete(ctx context.Context, req gateway.CompletionRequest) (gateway.Completion, error) {
	if g.failing() {
		return gateway.Completion{}, apperr.Upstream(apperr.CapabilityComplete, errors.New("dial tcp 127.0.0.1:11434: connection refused"))
	}
	if req.JSON {
		return gateway.Completion{Text: g.eval}, nil
	}
	return gateway.Completion{Text: "What did you learn from that?"}, nil
}

func (g *stubGateway) Chat(ctx context.Context, msgs []gateway.ChatMessage) (string, error) {
	if g.failing() {
		return "", apperr.Upstream(apperr.CapabilityChat, errors.New("dial tcp 127.0.0.1:11434: connection refused"))
	}
	return "Tell me more.", nil
}

func (g *stubGateway) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return "transcribed " + string(audio), nil
}

func (g *stubGateway) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("RIFF"), nil
}

type memClips struct{}

func (memClips) Save(sessionID string, data []byte, filename string) (string, error) {
	return "/audio/" + sessionID + "/clip.wav", nil
}

type testServer struct {
	router http.Handler
	store  *mock.Store
	gw     *stubGateway
}

func newTestServer(t *testing.T, checks ...api.HealthCheck) *testServer {
	t.Helper()
	store := mock.NewStore()
	if err := store.UpsertRole(context.Background(), &models.RoleTemplate{
		ID: "software-engineer", Title: "Software Engineer", Description: "General.", Difficulty: "mid",
		Questions: []string{"Design a cache."},
	}); err != nil {
		t.Fatalf("seed role: %v", err)
	}
	gw := &stubGateway{eval: `{"overallScore": 81, "strengths": ["Clear"], "areasForImprovement": ["Depth"], "detailedFeedback": "Nice work."}`}
	svc := interview.New(store, gw, ai.NewEvaluator(gw, nil, ai.EvaluatorConfig{}), interview.Config{}, interview.WithAudioStore(memClips{}))

	cfg := &config.Config{JWTSecret: testSecret, TokenDuration: time.Hour}
	router := api.SetupRoutes(cfg, "test", "now", api.Deps{Store: store, Interview: svc, Checks: checks})
	return &testServer{router: router, store: store, gw: gw}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, w.Body.String())
	}
	return v
}

func (s *testServer) startSession(t *testing.T) models.StartSessionResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/sessions", models.StartSessionRequest{
		RoleID:  "software-engineer",
		Profile: models.IntroProfile{Name: "Ada", ExperienceLevel: "Senior"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: status %d body %s", w.Code, w.Body.String())
	}
	return decode[models.StartSessionResponse](t, w)
}
