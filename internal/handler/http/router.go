package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dfgutierrez/sigr-sales/internal/service"
	"github.com/dfgutierrez/sigr-sales/pkg/health"
	"github.com/dfgutierrez/sigr-sales/pkg/middleware"
)

// RouterConfig carries the optional router dependencies.
type RouterConfig struct {
	CORS middleware.CORSConfig

	// Auth is the bearer-token validator. When nil the router trusts the
	// gateway-injected operator header instead of validating tokens itself.
	Auth middleware.TokenValidator
}

// NewRouter creates a chi router with all sale workflow routes registered.
func NewRouter(
	workflowService *service.WorkflowService,
	reconciliationService *service.ReconciliationService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics("sale-workflow"))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	workflowHandler := NewWorkflowHandler(workflowService, logger)
	reconciliationHandler := NewReconciliationHandler(reconciliationService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(middleware.Auth(cfg.Auth))
		}
		r.Use(sessionFromRequest)

		r.Route("/sales/workflows", func(r chi.Router) {
			r.Post("/", workflowHandler.Start)
			r.Get("/{id}", workflowHandler.Get)
			r.Put("/{id}/location", workflowHandler.SelectLocation)
			r.Post("/{id}/vehicle-query", workflowHandler.VehicleQuery)
			r.Get("/{id}/vehicle-suggestions", workflowHandler.VehicleSuggestions)
			r.Put("/{id}/vehicle", workflowHandler.SelectVehicle)
			r.Post("/{id}/vehicles", workflowHandler.CreateVehicle)
			r.Get("/{id}/products", workflowHandler.ListProducts)
			r.Post("/{id}/items", workflowHandler.AddItem)
			r.Put("/{id}/items/{productID}", workflowHandler.UpdateItem)
			r.Delete("/{id}/items/{productID}", workflowHandler.RemoveItem)
			r.Post("/{id}/submit", workflowHandler.Submit)
			r.Post("/{id}/cancel", workflowHandler.Cancel)
		})

		r.Route("/reconciliation", func(r chi.Router) {
			r.Get("/", reconciliationHandler.ListPending)
			r.Post("/{id}/resolve", reconciliationHandler.Resolve)
		})
	})

	return r
}
