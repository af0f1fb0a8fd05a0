package app

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/velvetcask/velvetcask/internal/audit/http"
	"github.com/velvetcask/velvetcask/internal/auth"
	"github.com/velvetcask/velvetcask/internal/authz"
	"github.com/velvetcask/velvetcask/internal/catalog"
	"github.com/velvetcask/velvetcask/internal/observability"
	"github.com/velvetcask/velvetcask/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	CatalogHandler *catalog.Handler
	AuditHandler   *audithttp.Handler
	Authz          authz.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with back-office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/admin", func(r chi.Router) {
		r.Use(params.Authz.RequireSession)
		r.Use(params.Authz.RequireRoute)
		if params.CatalogHandler != nil {
			r.Route("/products", params.CatalogHandler.MountProductRoutes)
			r.Route("/categories", params.CatalogHandler.MountCategoryRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/compliance", params.AuditHandler.MountRoutes)
		}
	})

	return r
}
