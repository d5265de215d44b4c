package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/mockinterview/internal/apperr"
	"github.com/garnizeh/mockinterview/pkg/models"
	"github.com/garnizeh/mockinterview/pkg/repository"
)

const maxHistoryPage = 200

// HistoryHandler serves past sessions straight from the store.
type HistoryHandler struct {
	store repository.Store
}

func NewHistoryHandler(store repository.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

func (h *HistoryHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if limit > maxHistoryPage {
		limit = maxHistoryPage
	}

	sessions, err := h.store.ListSessions(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, fmt.Errorf("list sessions: %w", err))
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// GetSession returns the session with its full transcript and evaluation.
func (h *HistoryHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		writeError(w, r, fmt.Errorf("get session: %w", err))
		return
	}
	if sess == nil {
		writeError(w, r, apperr.NotFound("session", id))
		return
	}

	detail := models.SessionDetail{Session: *sess}
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		entries, err := h.store.ListEntries(ctx, id)
		if err != nil {
			return fmt.Errorf("list transcript: %w", err)
		}
		detail.Transcript = entries
		return nil
	})
	g.Go(func() error {
		ev, err := h.store.GetEvaluation(ctx, id)
		if err != nil {
			return fmt.Errorf("get evaluation: %w", err)
		}
		detail.Evaluation = ev
		return nil
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}
	if detail.Transcript == nil {
		detail.Transcript = []models.TranscriptEntry{}
	}
	writeJSON(w, http.StatusOK, detail)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.Validation(key, "must be a non-negative integer")
	}
	return v, nil
}

