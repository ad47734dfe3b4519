package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raktimproloy/shopify-backend/api/controllers"
	"github.com/raktimproloy/shopify-backend/api/middleware"
	"github.com/raktimproloy/shopify-backend/internal/catalog"
	"github.com/raktimproloy/shopify-backend/internal/reconcile"
	"github.com/raktimproloy/shopify-backend/internal/scheduler"
	"github.com/raktimproloy/shopify-backend/pkg/config"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
)

// Dependencies carries everything the router wires into handlers. Broker may
// be nil when no queue is configured.
type Dependencies struct {
	Config    *config.Config
	Logger    *logger.Logger
	Readiness map[string]controllers.ReadinessPinger
	Catalog   *catalog.Repository
	Engine    *reconcile.Engine
	Scheduler *scheduler.Scheduler
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.Readiness))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.GetProductBySKU(deps.Catalog, deps.Logger))
			r.Post("/{id}/deploy", controllers.DeployProduct(deps.Scheduler, deps.Logger))
			r.Patch("/{id}", controllers.UpdateProduct(deps.Engine, deps.Logger))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", controllers.ListInventory(deps.Catalog, deps.Logger))
			r.Get("/variants/{id}", controllers.VariantInventory(deps.Catalog, deps.Logger))
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/products", controllers.TriggerProductSync(deps.Scheduler, deps.Logger))
			r.Post("/inventory", controllers.TriggerInventorySync(deps.Scheduler, deps.Logger))
			r.Get("/logs", controllers.ListSyncLogs(deps.Catalog, deps.Logger))
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/stats", controllers.JobStats(deps.Scheduler, deps.Logger))
			r.Post("/recurring", controllers.ScheduleRecurring(deps.Scheduler, deps.Logger))
			r.Delete("/recurring/{name}", controllers.ClearRecurring(deps.Scheduler, deps.Logger))
			r.Post("/cleanup", controllers.CleanupJobs(deps.Scheduler, deps.Logger))
		})
	})

	return r
}
