package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/garnizeh/mockinterview/api"
	"github.com/garnizeh/mockinterview/pkg/models"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("down") }

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name       string
		checks     []api.HealthCheck
		wantStatus int
		wantState  string
	}{
		{"no checks", nil, http.StatusOK, "ok"},
		{"all ok", []api.HealthCheck{{Name: "db", Check: ok}, {Name: "model", Check: ok}}, http.StatusOK, "ok"},
		{"optional down", []api.HealthCheck{{Name: "db", Check: ok}, {Name: "speech", Check: down, Optional: true}}, http.StatusOK, "degraded"},
		{"required down", []api.HealthCheck{{Name: "model", Check: down}, {Name: "speech", Check: down, Optional: true}}, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := api.NewSystemHandler(tc.checks...)
			w := httptest.NewRecorder()
			h.HealthHandler(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			if w.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, w.Code)
			}
			if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
				t.Fatalf("expected json content-type, got %q", ct)
			}
			resp := decode[models.HealthResponse](t, w)
			if resp.Status != tc.wantState || resp.Service != "mockinterview" {
				t.Fatalf("unexpected health body %+v", resp)
			}
			for _, c := range tc.checks {
				if resp.Components[c.Name] == "" {
					t.Fatalf("component %s missing from %+v", c.Name, resp.Components)
				}
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	h := api.NewSystemHandler()
	w := httptest.NewRecorder()
	h.VersionHandler("1.2.3", "2025-08-24T00:00:00Z")(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("version: expected 200 got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"version":"1.2.3"`) || !strings.Contains(string(b), `"buildTime":"2025-08-24T00:00:00Z"`) {
		t.Fatalf("version: unexpected body %s", string(b))
	}
}

func TestRoutes_HealthAndRoles(t *testing.T) {
	s := newTestServer(t, api.HealthCheck{Name: "db", Check: ok})
	if w := s.do(t, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("health through router: %d", w.Code)
	}
	w := s.do(t, http.MethodGet, "/v1/roles", nil)
	roles := decode[[]models.RoleTemplate](t, w)
	if w.Code != http.StatusOK || len(roles) != 1 || roles[0].ID != "software-engineer" || len(roles[0].Questions) != 1 {
		t.Fatalf("unexpected roles %d %+v", w.Code, roles)
	}
	if w := s.do(t, http.MethodOptions, "/v1/sessions", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected CORS preflight 204, got %d", w.Code)
	}
}
