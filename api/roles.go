package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/garnizeh/mockinterview/internal/apperr"
	"github.com/garnizeh/mockinterview/pkg/models"
	"github.com/garnizeh/mockinterview/pkg/repository"
)

type RolesHandler struct {
	repo repository.RoleRepo
}

func NewRolesHandler(repo repository.RoleRepo) *RolesHandler {
	return &RolesHandler{repo: repo}
}

func (h *RolesHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.repo.ListRoles(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("list roles: %w", err))
		return
	}
	if roles == nil {
		roles = []models.RoleTemplate{}
	}
	writeJSON(w, http.StatusOK, roles)
}

// UpsertRole creates or replaces the role template named in the path.
func (h *RolesHandler) UpsertRole(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var role models.RoleTemplate
	if err := decodeJSON(w, r, &role); err != nil {
		writeError(w, r, err)
		return
	}
	if role.ID != "" && role.ID != id {
		writeError(w, r, apperr.Validation("id", "body id does not match the path"))
		return
	}
	role.ID = id
	role.Title = strings.TrimSpace(role.Title)
	if role.Title == "" {
		writeError(w, r, apperr.Validation("title", "title is required"))
		return
	}
	if role.Difficulty == "" {
		role.Difficulty = "mid"
	}
	if role.Questions == nil {
		role.Questions = []string{}
	}

	if err := h.repo.UpsertRole(r.Context(), &role); err != nil {
		writeError(w, r, fmt.Errorf("upsert role: %w", err))
		return
	}
	logger.Info("api: role template saved", "role_id", id, "operator", r.Context().Value(CtxOperator))
	writeJSON(w, http.StatusOK, role)
}

func (h *RolesHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	existing, err := h.repo.GetRole(r.Context(), id)
	if err != nil {
		writeError(w, r, fmt.Errorf("get role: %w", err))
		return
	}
	if existing == nil {
		writeError(w, r, apperr.NotFound("role", id))
		return
	}
	if err := h.repo.DeleteRole(r.Context(), id); err != nil {
		writeError(w, r, fmt.Errorf("delete role: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
