package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/freteops/freteops/internal/consignment"
	"github.com/freteops/freteops/internal/observability"
	"github.com/freteops/freteops/internal/panel"
	"github.com/freteops/freteops/internal/platform/httpx"
	"github.com/freteops/freteops/internal/shared"
	"github.com/freteops/freteops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	ConsignmentHandler *consignment.Handler
	PanelHandler       *panel.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// The SPA registers who is looking at the grid; every later response is
	// scoped to this profile until the session expires.
	r.Post("/session/viewer", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())

		var viewer shared.Viewer
		if err := httpx.DecodeJSON(r, &viewer); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Viewer", err.Error())
			return
		}
		if err := shared.SaveViewer(sess, viewer); err != nil {
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "failed to store viewer profile")
			return
		}
		httpx.JSON(w, http.StatusOK, viewer)
	})

	r.Route("/consignments", params.ConsignmentHandler.MountRoutes)
	r.Route("/panel", params.PanelHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
