package http

import (
	"context"
	"net/http"
	"time"

	"gitlab.com/timkado/web/storefront-state/internal/domain"
)

// DependencyCheck reports the health of one backing service.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type readinessResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthHandler always answers OK while the process serves HTTP.
func HealthHandler(logger domain.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.Debug(r.Context(), "Health check endpoint hit")
		if err := writeJSON(w, http.StatusOK, map[string]string{"status": "OK"}); err != nil {
			logger.Error(r.Context(), "Failed to encode health response", "error", err.Error())
		}
	}
}

// ReadyHandler runs every check and answers 503 if any fails.
func ReadyHandler(logger domain.Logger, checks ...DependencyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := readinessResponse{Status: "READY", Dependencies: make(map[string]string, len(checks))}
		status := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				resp.Dependencies[c.Name] = "unavailable"
				resp.Status = "NOT_READY"
				status = http.StatusServiceUnavailable
				logger.Warn(r.Context(), "Readiness check failed", "dependency", c.Name, "error", err.Error())
				continue
			}
			resp.Dependencies[c.Name] = "ok"
		}
		if err := writeJSON(w, status, resp); err != nil {
			logger.Error(r.Context(), "Failed to encode readiness response", "error", err.Error())
		}
	}
}
