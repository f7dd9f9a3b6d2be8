// Package httptransport assembles the public HTTP surface: middleware chain,
// intake endpoints, health, and metrics.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leadgate/internal/intake/handler"
	"leadgate/pkg/platform/httputil"
	"leadgate/pkg/platform/middleware/metadata"
)

// HealthChecker reports the availability of one backing component.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

// Health implements HealthChecker.
func (f HealthCheckFunc) Health(ctx context.Context) error { return f(ctx) }

// HealthResponse is the JSON body of GET /api/health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

// NewRouter wires the middleware chain and all public endpoints.
// checks maps component names to health checkers; nil checkers are skipped.
func NewRouter(intake *handler.Handler, checks map[string]HealthChecker) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metadata.Capture)

	intake.Register(r)

	r.Get("/api/health", handleHealth(checks))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{Status: "ok", Components: map[string]string{}}
		status := http.StatusOK

		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				resp.Components[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Components[name] = "ok"
		}

		httputil.WriteJSON(w, status, resp)
	}
}
