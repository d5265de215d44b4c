package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garnizeh/mockinterview/api"
	"github.com/garnizeh/mockinterview/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

func TestSignin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h := api.NewAuthHandler("admin", string(hash), testSecret, time.Hour)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"InvalidRequest", "not a json", http.StatusBadRequest},
		{"UnknownField", `{"username":"admin","password":"s3cret","admin":true}`, http.StatusBadRequest},
		{"MissingPassword", `{"username":"admin"}`, http.StatusBadRequest},
		{"WrongPassword", `{"username":"admin","password":"nope"}`, http.StatusUnauthorized},
		{"WrongUser", `{"username":"root","password":"s3cret"}`, http.StatusUnauthorized},
		{"Success", `{"username":"admin","password":"s3cret"}`, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Signin(w, httptest.NewRequest(http.MethodPost, "/v1/auth/signin", bytes.NewBufferString(tc.body)))
			if w.Code != tc.wantStatus {
				t.Fatalf("want %d got %d (%s)", tc.wantStatus, w.Code, w.Body.String())
			}
			if tc.wantStatus == http.StatusOK {
				var resp models.SigninResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
					t.Fatalf("expected token, got %s (%v)", w.Body.String(), err)
				}
			}
		})
	}
}

func TestSignin_Disabled(t *testing.T) {
	h := api.NewAuthHandler("", "", testSecret, time.Hour)
	w := httptest.NewRecorder()
	h.Signin(w, httptest.NewRequest(http.MethodPost, "/v1/auth/signin", bytes.NewBufferString(`{"username":"a","password":"b"}`)))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when no operator is configured, got %d", w.Code)
	}
}

func TestAdminRoles(t *testing.T) {
	s := newTestServer(t)
	role := models.RoleTemplate{Title: "Site Reliability Engineer", Description: "On-call and SLOs.", Questions: []string{"Define an SLO."}}

	if w := s.do(t, http.MethodPut, "/v1/admin/roles/sre", role); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	tok := signToken(t, testSecret, map[string]any{"sub": "admin", "role": "operator", "exp": time.Now().Add(time.Hour).Unix()})
	auth := []string{"Authorization", "Bearer " + tok}

	w := s.do(t, http.MethodPut, "/v1/admin/roles/sre", role, auth...)
	if w.Code != http.StatusOK {
		t.Fatalf("upsert: %d %s", w.Code, w.Body.String())
	}
	saved := decode[models.RoleTemplate](t, w)
	if saved.ID != "sre" || saved.Difficulty != "mid" {
		t.Fatalf("unexpected saved role %+v", saved)
	}

	if w := s.do(t, http.MethodPut, "/v1/admin/roles/sre", models.RoleTemplate{ID: "other", Title: "x"}, auth...); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for id mismatch, got %d", w.Code)
	}
	if w := s.do(t, http.MethodPut, "/v1/admin/roles/sre", models.RoleTemplate{}, auth...); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing title, got %d", w.Code)
	}

	if w := s.do(t, http.MethodPost, "/v1/sessions", models.StartSessionRequest{RoleID: "sre"}); w.Code != http.StatusCreated {
		t.Fatalf("expected new role to be usable, got %d", w.Code)
	}

	if w := s.do(t, http.MethodDelete, "/v1/admin/roles/sre", nil, auth...); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, "/v1/admin/roles/sre", nil, auth...); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}
