// Package api exposes the dashboard's read surface over HTTP: run stats,
// filtered customer pages, chart samples, distributions and health probes.
// All data comes from the reporting service; nothing here mutates a run.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/pkg/logger"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/reporting"
)

// Handlers holds the services the HTTP endpoints delegate to.
type Handlers struct {
	reporting *reporting.Service
}

// NewHandlers creates the endpoint handler set.
func NewHandlers(svc *reporting.Service) *Handlers {
	return &Handlers{reporting: svc}
}

// GetStats returns the latest run's headline numbers.
//
//	GET /api/stats
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reporting.Stats(r.Context())
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("stats query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetCustomers returns a filtered, paginated customer list from the latest run.
// Filters: cluster, sales_quadrant, trust_quadrant, priority, industry, tier, q.
//
//	GET /api/customers?page=1&limit=100&cluster=mid&priority=High
func (h *Handlers) GetCustomers(w http.ResponseWriter, r *http.Request) {
	params := ParsePagination(r, 100, 1000)
	q := r.URL.Query()

	filter := reporting.ListFilter{
		Cluster:        q.Get("cluster"),
		SalesQuadrant:  q.Get("sales_quadrant"),
		TrustQuadrant:  q.Get("trust_quadrant"),
		Priority:       q.Get("priority"),
		TenureStrategy: q.Get("tenure_strategy"),
		Industry:       q.Get("industry"),
		TierGroup:      q.Get("tier"),
		Search:         q.Get("q"),
		Limit:          params.Limit,
		Offset:         params.Offset,
	}

	page, err := h.reporting.Customers(r.Context(), filter)
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("customer query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load customers")
		return
	}

	customers := page.Customers
	if customers == nil {
		customers = []domain.OpportunityRecord{}
	}
	respondJSON(w, http.StatusOK, NewPaginatedResponse(customers, params, int64(page.Total)))
}

// GetCustomer returns one customer's full opportunity record.
//
//	GET /api/customer/{customerID}
func (h *Handlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	record, err := h.reporting.Customer(r.Context(), customerID)
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "customer not found")
		return
	}
	if err != nil {
		logger.Error("customer lookup failed", "customer_id", customerID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load customer")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// SearchCustomers matches customers by name or id fragment.
//
//	GET /api/search?q=MAJU&limit=10
func (h *Handlers) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		respondError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	limit := parseLimit(r, 10, 50)

	results, err := h.reporting.Search(r.Context(), query, limit)
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("customer search failed", "query", query, "error", err)
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}

	if results == nil {
		results = []domain.OpportunityRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// GetChartData returns the stratified scatter sample for the dashboard.
//
//	GET /api/chart-data
func (h *Handlers) GetChartData(w http.ResponseWriter, r *http.Request) {
	data, err := h.reporting.ChartData(r.Context())
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("chart query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load chart data")
		return
	}
	respondJSON(w, http.StatusOK, data)
}

// GetChartDataFull returns every point of the latest run, uncapped. Used by
// the dashboard's export button, not the live charts.
//
//	GET /api/chart-data-full
func (h *Handlers) GetChartDataFull(w http.ResponseWriter, r *http.Request) {
	data, err := h.reporting.ChartDataFull(r.Context())
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("chart export failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load chart data")
		return
	}
	respondJSON(w, http.StatusOK, data)
}

// GetTopUpsell returns the latest run's highest-ranked upsell opportunities.
//
//	GET /api/opportunities/upsell?limit=10
func (h *Handlers) GetTopUpsell(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 10, 100)

	records, err := h.reporting.TopUpsell(r.Context(), limit)
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("top upsell query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load opportunities")
		return
	}

	if records == nil {
		records = []domain.OpportunityRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":         len(records),
		"opportunities": records,
	})
}

// GetTopCrossSell returns the latest run's best cross-sell opportunities,
// excluded customers included.
//
//	GET /api/opportunities/cross-sell?limit=10
func (h *Handlers) GetTopCrossSell(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 10, 100)

	records, err := h.reporting.TopCrossSell(r.Context(), limit)
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("top cross-sell query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load opportunities")
		return
	}

	if records == nil {
		records = []domain.OpportunityRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":         len(records),
		"opportunities": records,
	})
}

// GetIndustries returns industry buckets with customer counts.
//
//	GET /api/industries
func (h *Handlers) GetIndustries(w http.ResponseWriter, r *http.Request) {
	h.respondDistribution(w, r, "industry", "industries")
}

// GetTiers returns product-tier buckets with customer counts.
//
//	GET /api/tiers
func (h *Handlers) GetTiers(w http.ResponseWriter, r *http.Request) {
	h.respondDistribution(w, r, "tier", "tiers")
}

// GetPriorities returns the priority distribution.
//
//	GET /api/priorities
func (h *Handlers) GetPriorities(w http.ResponseWriter, r *http.Request) {
	h.respondDistribution(w, r, "priority", "priorities")
}

func (h *Handlers) respondDistribution(w http.ResponseWriter, r *http.Request, dimension, field string) {
	facets, err := h.reporting.Distribution(r.Context(), dimension)
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("distribution query failed", "dimension", dimension, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load distribution")
		return
	}

	if facets == nil {
		facets = []reporting.Facet{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		field:          facets,
		"total_unique": len(facets),
	})
}

// StrategyBucket is one sales quadrant with its playbook and customer count.
type StrategyBucket struct {
	Quadrant string `json:"quadrant"`
	Strategy string `json:"strategy"`
	Action   string `json:"action"`
	Count    int    `json:"count"`
	Color    string `json:"color"`
}

// GetStrategies returns the sales quadrants with their playbook entries and
// how many customers sit in each.
//
//	GET /api/strategies
func (h *Handlers) GetStrategies(w http.ResponseWriter, r *http.Request) {
	facets, err := h.reporting.Distribution(r.Context(), "sales_quadrant")
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("strategy query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load strategies")
		return
	}

	buckets := make([]StrategyBucket, 0, len(facets))
	for _, f := range facets {
		playbook := domain.SalesQuadrant(f.Value).StrategyFor()
		buckets = append(buckets, StrategyBucket{
			Quadrant: f.Value,
			Strategy: playbook.Strategy,
			Action:   playbook.Action,
			Count:    f.Count,
			Color:    playbook.Color,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategies":   buckets,
		"total_unique": len(buckets),
	})
}

// GetTopProducts returns the most recommended products across the latest run.
//
//	GET /api/products?limit=10
func (h *Handlers) GetTopProducts(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 10, 50)

	facets, err := h.reporting.TopOffers(r.Context(), limit)
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "no pipeline runs recorded yet")
		return
	}
	if err != nil {
		logger.Error("product query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load products")
		return
	}

	if facets == nil {
		facets = []reporting.Facet{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": facets,
	})
}

// ListRuns returns recent run summaries, newest first.
//
//	GET /api/runs?limit=20
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 100)

	runs, err := h.reporting.Runs(r.Context(), limit)
	if err != nil {
		logger.Error("run list query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load runs")
		return
	}

	if runs == nil {
		runs = []domain.RunSummary{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
	})
}

// GetRun returns one run summary by id.
//
//	GET /api/runs/{runID}
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	summary, err := h.reporting.Run(r.Context(), runID)
	if err == domain.ErrNotFound {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		logger.Error("run lookup failed", "run_id", runID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func parseLimit(r *http.Request, defaultLimit, maxLimit int) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
