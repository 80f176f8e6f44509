package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/auth"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/catalog"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/inventory"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/invoices"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/labels"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/media"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/observability"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/platform/httpx"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/sales"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/shared"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/internal/showcase"
	"github.com/alisina036/DoctorSmartPhone-Lelystad-sub001/jobs"
)

// Pinger reports backing store health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router. Nil handlers
// are skipped.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Metrics        *observability.Metrics
	Database       Pinger

	AuthHandler      *auth.Handler
	InventoryHandler *inventory.Handler
	SalesHandler     *sales.Handler
	ShowcaseHandler  *showcase.Handler
	InvoicesHandler  *invoices.Handler
	CatalogHandler   *catalog.Handler
	MediaHandler     *media.Handler
	LabelsHandler    *labels.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with storefront defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if params.Database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := params.Database.Ping(ctx); err != nil {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.ShowcaseHandler != nil {
		params.ShowcaseHandler.MountPublicRoutes(r)
	}
	if params.CatalogHandler != nil {
		params.CatalogHandler.MountPublicRoutes(r)
	}
	if params.MediaHandler != nil {
		params.MediaHandler.MountPublicRoutes(r)
	}

	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		if params.InventoryHandler != nil {
			params.InventoryHandler.MountRoutes(r)
		}
		if params.SalesHandler != nil {
			params.SalesHandler.MountRoutes(r)
		}
		if params.ShowcaseHandler != nil {
			params.ShowcaseHandler.MountAdminRoutes(r)
		}
		if params.InvoicesHandler != nil {
			params.InvoicesHandler.MountRoutes(r)
		}
		if params.CatalogHandler != nil {
			params.CatalogHandler.MountAdminRoutes(r)
		}
		if params.MediaHandler != nil {
			params.MediaHandler.MountAdminRoutes(r)
		}
		if params.LabelsHandler != nil {
			params.LabelsHandler.MountRoutes(r)
		}
		if params.JobHandler != nil {
			params.JobHandler.MountRoutes(r)
		}
	})

	return r
}
