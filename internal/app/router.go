package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumina-ims/lumina/internal/analyticsproxy"
	"github.com/lumina-ims/lumina/internal/audit"
	"github.com/lumina-ims/lumina/internal/auth"
	"github.com/lumina-ims/lumina/internal/branches"
	"github.com/lumina-ims/lumina/internal/categories"
	"github.com/lumina-ims/lumina/internal/dashboard"
	"github.com/lumina-ims/lumina/internal/notifications"
	"github.com/lumina-ims/lumina/internal/products"
	"github.com/lumina-ims/lumina/internal/requisition"
	"github.com/lumina-ims/lumina/internal/transfers"
	"github.com/lumina-ims/lumina/internal/users"
	"github.com/lumina-ims/lumina/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthHandler          *auth.Handler
	UsersHandler         *users.Handler
	BranchesHandler      *branches.Handler
	CategoriesHandler    *categories.Handler
	ProductsHandler      *products.Handler
	RequisitionHandler   *requisition.Handler
	TransfersHandler     *transfers.Handler
	NotificationsHandler *notifications.Handler
	AuditHandler         *audit.Handler
	DashboardHandler     *dashboard.Handler
	AnalyticsHandler     *analyticsproxy.Handler
	JobsHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with Lumina defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/test", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"Lumina API is running"}`))
		})

		params.AuthHandler.MountRoutes(api)
		params.UsersHandler.MountRoutes(api)
		params.BranchesHandler.MountRoutes(api)
		params.CategoriesHandler.MountRoutes(api)
		params.ProductsHandler.MountRoutes(api)
		params.RequisitionHandler.MountRoutes(api)
		params.TransfersHandler.MountRoutes(api)
		params.NotificationsHandler.MountRoutes(api)
		params.AuditHandler.MountRoutes(api)
		params.DashboardHandler.MountRoutes(api)
		params.AnalyticsHandler.MountRoutes(api)

		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
