package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the router. hc may be nil, in which case the
// health endpoints are not registered (tests that only exercise data
// endpoints pass nil).
func SetupRoutes(h *Handlers, hc *HealthChecker) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS for the dashboard frontend. The API is read-only, so GET is all
	// it needs.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health probes (outside /api)
	if hc != nil {
		r.Get("/health", hc.HandleHealth)
		r.Get("/health/live", hc.HandleLiveness)
		r.Get("/health/ready", hc.HandleReadiness)
	}

	r.Route("/api", func(r chi.Router) {
		// Dashboard headline + charts
		r.Get("/stats", h.GetStats)
		r.Get("/chart-data", h.GetChartData)
		r.Get("/chart-data-full", h.GetChartDataFull)

		// Customer browsing
		r.Get("/customers", h.GetCustomers)
		r.Get("/customer/{customerID}", h.GetCustomer)
		r.Get("/search", h.SearchCustomers)

		// Ranked opportunity lists
		r.Route("/opportunities", func(r chi.Router) {
			r.Get("/upsell", h.GetTopUpsell)
			r.Get("/cross-sell", h.GetTopCrossSell)
		})

		// Facets for dashboard filters and cards
		r.Get("/industries", h.GetIndustries)
		r.Get("/tiers", h.GetTiers)
		r.Get("/priorities", h.GetPriorities)
		r.Get("/strategies", h.GetStrategies)
		r.Get("/products", h.GetTopProducts)

		// Run history
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Get("/{runID}", h.GetRun)
		})
	})

	return r
}
