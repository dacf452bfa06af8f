package handler

import (
	"net/http"
	"time"

	"github.com/companychat/crm-backend-go/internal/infra/observability"
	"github.com/companychat/crm-backend-go/internal/port"
	"github.com/companychat/crm-backend-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Deps groups everything the router needs.
type Deps struct {
	Clients   *service.ClientService
	Reporting *service.ReportingService
	Settings  *service.SettingsService
	Sessions  *service.SessionService
	DB        port.ClientPersistence
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
// Routes follow the API contract of the CompanyChat CRM frontend.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	logger := d.Logger

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.DB, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 (all routes behind auth) ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(d.Sessions, logger))

		// =============================================
		// Clients
		// =============================================
		r.Get("/clients", listClientsHandler(d.Clients, logger))
		r.Post("/clients", addClientHandler(d.Clients, logger))
		r.Get("/clients/{clientID}", getClientHandler(d.Clients, logger))
		r.Patch("/clients/{clientID}", updateClientHandler(d.Clients, logger))
		r.Patch("/clients/{clientID}/status", updateClientStatusHandler(d.Clients, logger))
		r.Delete("/clients/{clientID}", deleteClientHandler(d.Clients, logger))

		// =============================================
		// Dashboard & reports
		// =============================================
		r.Get("/dashboard", dashboardHandler(d.Reporting, logger))
		r.Get("/reports", reportsHandler(d.Reporting, logger))
		r.Get("/metrics/summary", metricsSummaryHandler(d.Metrics))

		// =============================================
		// Settings
		// =============================================
		r.Route("/settings", func(r chi.Router) {
			r.Get("/products", listProductsHandler(d.Settings))
			r.Post("/products", addProductHandler(d.Settings, logger))
			r.Patch("/products/{id}", updateProductHandler(d.Settings, logger))
			r.Delete("/products/{id}", deleteProductHandler(d.Settings, logger))

			r.Get("/niches", listNichesHandler(d.Settings))
			r.Post("/niches", addNicheHandler(d.Settings, logger))
			r.Patch("/niches/{id}", updateNicheHandler(d.Settings, logger))
			r.Delete("/niches/{id}", deleteNicheHandler(d.Settings, logger))

			r.Get("/payment-methods", listPaymentMethodsHandler(d.Settings))
			r.Post("/payment-methods", addPaymentMethodHandler(d.Settings, logger))
			r.Patch("/payment-methods/{id}", updatePaymentMethodHandler(d.Settings, logger))
			r.Delete("/payment-methods/{id}", deletePaymentMethodHandler(d.Settings, logger))

			r.Get("/company", getCompanyInfoHandler(d.Settings))
			r.Patch("/company", updateCompanyInfoHandler(d.Settings, logger))

			r.Get("/integrations", listIntegrationsHandler(d.Settings))
			r.Patch("/integrations/{key}", updateIntegrationHandler(d.Settings, logger))
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

type serviceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
}

func healthzHandler(db port.ClientPersistence, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		services := []serviceHealth{
			{Name: "crm-api", Status: "healthy", LatencyMs: 0},
		}

		if db != nil {
			start := time.Now()
			_, err := db.ListByOwner(ctx, "health-check")
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
				logger.Warn("healthz: supabase check failed", zap.Error(err))
			}
			services = append(services, serviceHealth{Name: "supabase", Status: status, LatencyMs: latency})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overall = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":    overall,
			"services":  services,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetOpsSnapshot())
	}
}
