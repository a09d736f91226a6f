// Package httptransport assembles the HTTP surface: the public verify
// endpoint, the token-guarded admin surface, and operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "enrollgate/internal/audit/handler"
	"enrollgate/internal/platform/middleware"
	providerhandler "enrollgate/internal/provider/handler"
	verifyhandler "enrollgate/internal/verification/handler"
	"enrollgate/pkg/platform/httputil"
)

// HealthChecker reports the liveness of an attached backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Verify   *verifyhandler.Handler
	Provider *providerhandler.Handler
	Audit    *audithandler.Handler

	// AdminToken guards /admin. When empty the admin surface is not mounted.
	AdminToken string

	// HealthCheckers are probed by /healthz; nil entries are skipped.
	HealthCheckers []HealthChecker

	Logger *slog.Logger
}

// NewRouter wires all endpoints with the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)

	deps.Verify.Register(r)

	if deps.AdminToken != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(middleware.RequireAdminToken(deps.AdminToken, deps.Logger))
			deps.Provider.Register(admin)
			deps.Audit.Register(admin)
		})
	}

	r.Get("/healthz", healthHandler(deps.HealthCheckers))
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func healthHandler(checkers []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, checker := range checkers {
			if checker == nil {
				continue
			}
			if err := checker.Health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
