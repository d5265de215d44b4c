package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/mockinterview/pkg/models"
)

// HealthCheck probes one dependency. Optional dependencies degrade the
// reported status without failing it.
type HealthCheck struct {
	Name     string
	Check    func(ctx context.Context) error
	Optional bool
}

type SystemHandler struct {
	checks  []HealthCheck
	timeout time.Duration
}

func NewSystemHandler(checks ...HealthCheck) *SystemHandler {
	return &SystemHandler{checks: checks, timeout: 5 * time.Second}
}

// HealthHandler runs every check concurrently. It answers 503 when a
// required component is down.
func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results := make([]error, len(h.checks))
	var g errgroup.Group
	for i, c := range h.checks {
		g.Go(func() error {
			results[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := models.HealthResponse{Status: "ok", Service: "mockinterview"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Components = make(map[string]string, len(h.checks))
	}
	for i, c := range h.checks {
		if err := results[i]; err != nil {
			resp.Components[c.Name] = "unavailable"
			logger.Warn("health: component unavailable", slog.String("component", c.Name), slog.Any("err", err))
			if c.Optional {
				if resp.Status == "ok" {
					resp.Status = "degraded"
				}
				continue
			}
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[c.Name] = "ok"
	}

	writeJSON(w, status, resp)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","buildTime":"%s"}`, version, buildTime)
	}
}
