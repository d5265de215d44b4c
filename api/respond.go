package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/garnizeh/mockinterview/internal/apperr"
	"github.com/garnizeh/mockinterview/pkg/models"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("api: encode response", slog.Any("err", err))
	}
}

// writeError maps err onto a stable category. Upstream and internal error
// text is logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	category := apperr.Category(err)
	resp := models.ErrorResponse{Error: category}
	var status int

	switch category {
	case apperr.CategoryValidation:
		status = http.StatusBadRequest
		resp.Message = err.Error()
	case apperr.CategoryNotFound:
		status = http.StatusNotFound
		resp.Message = err.Error()
	case apperr.CategoryConnectivity:
		status = http.StatusBadGateway
		resp.Message = "The interview assistant is temporarily unavailable. Please try again in a moment."
		logger.Warn("api: upstream failure", slog.String("path", r.URL.Path), slog.Any("err", err))
	default:
		status = http.StatusInternalServerError
		resp.Message = "Something went wrong on our side. Please try again."
		logger.Error("api: internal error", slog.String("path", r.URL.Path), slog.Any("err", err))
	}

	writeJSON(w, status, resp)
}

// decodeJSON strictly decodes a single JSON document into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("body", "request body is required")
		}
		return apperr.Validation("body", fmt.Sprintf("invalid request body: %v", err))
	}
	if dec.More() {
		return apperr.Validation("body", "request body must contain a single JSON object")
	}
	return nil
}
