package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/mockinterview/internal/apperr"
	"github.com/garnizeh/mockinterview/internal/interview"
	"github.com/garnizeh/mockinterview/internal/report"
	"github.com/garnizeh/mockinterview/pkg/models"
	"github.com/garnizeh/mockinterview/pkg/repository"
)

// MaxAudioBytes bounds an uploaded audio answer.
const MaxAudioBytes = 10 << 20

// SessionsHandler exposes the interview flow.
type SessionsHandler struct {
	svc   *interview.Service
	store repository.TranscriptRepo
}

func NewSessionsHandler(svc *interview.Service, store repository.TranscriptRepo) *SessionsHandler {
	return &SessionsHandler{svc: svc, store: store}
}

func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	started, err := h.svc.StartSession(r.Context(), interview.StartRequest{
		RoleID:       req.RoleID,
		VoiceEnabled: req.VoiceEnabled,
		Profile:      req.Profile,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.StartSessionResponse{
		Session: *started.Session,
		Message: *started.Welcome,
		Phase:   started.Phase.String(),
	})
}

func (h *SessionsHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, snap, err := h.svc.Describe(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.SessionView{Session: *sess, Phase: snap.Phase.String(), IntroStep: snap.IntroStep})
}

// EndSession closes the session lifecycle without generating an evaluation.
func (h *SessionsHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	var req models.EndSessionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	sess, err := h.svc.CloseSession(r.Context(), mux.Vars(r)["id"], req.Score)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionsHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := h.svc.SubmitCandidateMessage(r.Context(), mux.Vars(r)["id"], req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.MessageResponse{
		Messages:  reply.Messages,
		Phase:     reply.Phase.String(),
		IntroStep: reply.IntroStep,
	})
}

func (h *SessionsHandler) SendAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxAudioBytes+(1<<20))
	if err := r.ParseMultipartForm(MaxAudioBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperr.Validation("audio", fmt.Sprintf("audio file exceeds %d bytes", MaxAudioBytes)))
			return
		}
		writeError(w, r, apperr.Validation("audio", "multipart form with an audio file is required"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, r, apperr.Validation("audio", "audio file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxAudioBytes+1))
	if err != nil {
		writeError(w, r, fmt.Errorf("read audio upload: %w", err))
		return
	}
	if len(data) > MaxAudioBytes {
		writeError(w, r, apperr.Validation("audio", fmt.Sprintf("audio file exceeds %d bytes", MaxAudioBytes)))
		return
	}

	out, err := h.svc.SubmitCandidateAudio(r.Context(), mux.Vars(r)["id"], data, header.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.AudioResponse{
		Transcription: out.Transcription,
		Message:       out.Reply.Text(),
		AudioURL:      out.AudioURL,
		Messages:      out.Reply.Messages,
		Phase:         out.Reply.Phase.String(),
	})
}

// Evaluate returns the stored evaluation or generates it.
func (h *SessionsHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.EndSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *SessionsHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ev, err := h.svc.GetEvaluation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ev == nil {
		writeError(w, r, apperr.NotFound("evaluation", id))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// Report renders the feedback report as Markdown or, with ?format=html, HTML.
func (h *SessionsHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "md"
	}
	if format != "md" && format != "html" {
		writeError(w, r, apperr.Validation("format", "format must be md or html"))
		return
	}

	sess, _, err := h.svc.Describe(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := h.svc.GetEvaluation(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ev == nil {
		writeError(w, r, apperr.NotFound("evaluation", id))
		return
	}
	turns, err := h.store.CountEntries(ctx, id)
	if err != nil {
		writeError(w, r, fmt.Errorf("count transcript: %w", err))
		return
	}

	rep := &report.Report{Session: *sess, Evaluation: *ev, Turns: turns}
	if p, ok := h.svc.Profile(id); ok {
		rep.Profile = &p
	}

	if format == "html" {
		html, err := rep.HTML()
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, html)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, rep.Markdown())
}
