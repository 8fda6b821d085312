package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attestor/internal/platform/middleware"
)

// Registrar is implemented by module handlers that mount their own routes.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar is implemented by handlers with open routes.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router)
}

// HealthChecker reports readiness of an attached backing service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig collects everything the router needs from main.
type RouterConfig struct {
	Logger    *slog.Logger
	Validator middleware.TokenValidator
	Auth      *AuthHandler

	// Public carries handlers whose routes need no bearer token; Gated
	// handlers sit behind RequireAuth.
	Public []PublicRegistrar
	Gated  []Registrar

	// Health checks run on /healthz; nil entries are skipped.
	Health []HealthChecker
}

// NewRouter assembles the full HTTP surface: token exchange, public reads,
// gated mutations, health and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Metadata)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if cfg.Auth != nil {
		r.With(middleware.ContentTypeJSON).Post("/auth/token", cfg.Auth.HandleToken)
	}

	r.Group(func(pub chi.Router) {
		pub.Use(middleware.ContentTypeJSON)
		for _, h := range cfg.Public {
			h.RegisterPublic(pub)
		}
	})

	r.Group(func(gated chi.Router) {
		gated.Use(middleware.ContentTypeJSON)
		gated.Use(middleware.RequireAuth(cfg.Validator, cfg.Logger))
		for _, h := range cfg.Gated {
			h.Register(gated)
		}
	})

	return r
}

func healthHandler(checks []HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range checks {
			if c == nil {
				continue
			}
			if err := c.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unhealthy"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
