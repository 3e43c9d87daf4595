package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockpilot-erp/stockpilot/internal/inventory"
	"github.com/stockpilot-erp/stockpilot/internal/observability"
	"github.com/stockpilot-erp/stockpilot/internal/platform/httpx"
	"github.com/stockpilot-erp/stockpilot/internal/procurement"
	"github.com/stockpilot-erp/stockpilot/internal/quality"
	"github.com/stockpilot-erp/stockpilot/internal/shared"
	"github.com/stockpilot-erp/stockpilot/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	ProcurementHandler *procurement.Handler
	QualityHandler     *quality.Handler
	InventoryHandler   *inventory.Handler
	Events             shared.Recorder
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/procurement", params.ProcurementHandler.MountRoutes)
	r.Route("/quality", params.QualityHandler.MountRoutes)
	r.Route("/inventory", params.InventoryHandler.MountRoutes)

	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		events, err := params.Events.List(r.Context())
		if err != nil {
			params.Logger.Error("list events", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		httpx.JSON(w, http.StatusOK, events)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
