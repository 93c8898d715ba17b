// Package httptransport is the thin HTTP layer over the domain services. It
// decodes requests, resolves the caller from the bearer token and maps domain
// errors to status codes; every rule lives in the services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"recensement/internal/platform/metrics"
	"recensement/pkg/platform/httputil"
	adminmw "recensement/pkg/platform/middleware/admin"
	authmw "recensement/pkg/platform/middleware/auth"
	"recensement/pkg/platform/middleware/logging"
	"recensement/pkg/platform/middleware/metadata"
	request "recensement/pkg/platform/middleware/request"
	"recensement/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tokens  authmw.TokenValidator

	// MetricsHandler is served on /metrics when set, behind MetricsToken when
	// that is non-empty.
	MetricsHandler http.Handler
	MetricsToken   string

	// HealthChecks run on /health/ready; /health always answers ok.
	HealthChecks map[string]HealthCheck
}

type Handlers struct {
	Auth    *AuthHandler
	Users   *UserHandler
	Zones   *ZoneHandler
	Records *RecordHandler
}

// NewRouter wires every route. Only health, login and metrics are reachable
// without a bearer token.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	var observer logging.DurationObserver
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(logging.AccessLog(cfg.Logger, observer))
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, ok)
	})
	r.Get("/health/ready", readiness(cfg.HealthChecks, cfg.Logger))

	if cfg.MetricsHandler != nil {
		if cfg.MetricsToken != "" {
			r.With(adminmw.RequireAdminToken(cfg.MetricsToken, cfg.Logger)).Handle("/metrics", cfg.MetricsHandler)
		} else {
			r.Handle("/metrics", cfg.MetricsHandler)
		}
	}

	h.Auth.RegisterPublic(r)

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.RequireAuth(cfg.Tokens, cfg.Logger))
		h.Auth.Register(pr)
		h.Users.Register(pr)
		h.Zones.Register(pr)
		h.Records.Register(pr)
	})
	return r
}

type readinessResponse struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

func readiness(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := readinessResponse{OK: true, Checks: make(map[string]string, len(checks))}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed",
					"check", name,
					"error", err.Error(),
					"request_id", request.GetRequestID(ctx),
				)
				resp.OK = false
				resp.Checks[name] = "unavailable"
				continue
			}
			resp.Checks[name] = "ok"
		}
		status := http.StatusOK
		if !resp.OK {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
