package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/reporting"
)

// stubRunStore serves one canned summary.
type stubRunStore struct {
	summary *domain.RunSummary
}

func (s *stubRunStore) Get(ctx context.Context, runID string) (*domain.RunSummary, error) {
	if s.summary != nil && s.summary.RunID == runID {
		return s.summary, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubRunStore) Latest(ctx context.Context) (*domain.RunSummary, error) {
	if s.summary == nil {
		return nil, domain.ErrNotFound
	}
	return s.summary, nil
}

func (s *stubRunStore) List(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if s.summary == nil {
		return nil, nil
	}
	return []domain.RunSummary{*s.summary}, nil
}

// stubOpportunityStore serves canned records and facets.
type stubOpportunityStore struct {
	records []domain.OpportunityRecord
	facets  []reporting.Facet
}

func (s *stubOpportunityStore) Get(ctx context.Context, runID, customerID string) (*domain.OpportunityRecord, error) {
	for i := range s.records {
		if s.records[i].CustomerID == customerID {
			return &s.records[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubOpportunityStore) List(ctx context.Context, runID string, f reporting.ListFilter) ([]domain.OpportunityRecord, int, error) {
	var matched []domain.OpportunityRecord
	for _, rec := range s.records {
		if f.Priority != "" && string(rec.Priority) != f.Priority {
			continue
		}
		if f.Search != "" && !strings.Contains(rec.CustomerID, f.Search) && !strings.Contains(rec.CustomerName, f.Search) {
			continue
		}
		matched = append(matched, rec)
	}
	total := len(matched)
	if f.Offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (s *stubOpportunityStore) TopUpsell(ctx context.Context, runID string, limit int) ([]domain.OpportunityRecord, error) {
	return s.records, nil
}

func (s *stubOpportunityStore) TopCrossSell(ctx context.Context, runID string, limit int) ([]domain.OpportunityRecord, error) {
	return s.records, nil
}

func (s *stubOpportunityStore) Distribution(ctx context.Context, runID, dimension string) ([]reporting.Facet, error) {
	return s.facets, nil
}

func (s *stubOpportunityStore) TopOffers(ctx context.Context, runID string, limit int) ([]reporting.Facet, error) {
	return s.facets, nil
}

func apiTestSummary() *domain.RunSummary {
	started := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	return &domain.RunSummary{
		RunID:        "run-1",
		SourceFile:   "extract.csv",
		StartedAt:    started,
		FinishedAt:   started.Add(90 * time.Second),
		TotalRows:    12,
		ImportedRows: 11,
		ScoredRows:   11,
		ExcludedRows: 1,
	}
}

func apiTestRecord(id string, priority domain.Priority) domain.OpportunityRecord {
	return domain.OpportunityRecord{
		RunID:         "run-1",
		CustomerID:    id,
		CustomerName:  "PT " + id,
		Industry:      "BANKING & FINANCIAL SERVICES",
		Cluster:       domain.ClusterMid,
		Eligible:      true,
		SalesQuadrant: domain.SalesSniperZone,
		TrustQuadrant: domain.TrustHighPotential,
		UpsellScore:   0.8,
		Priority:      priority,
	}
}

func setupTestRouter(summary *domain.RunSummary, opps *stubOpportunityStore) http.Handler {
	runs := &stubRunStore{summary: summary}
	svc := reporting.New(runs, opps, nil, config.ReportingConfig{CacheTTLSeconds: 60, SampleLimit: 5000})
	return SetupRoutes(NewHandlers(svc), nil)
}

func doRequest(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetStats(t *testing.T) {
	router := setupTestRouter(apiTestSummary(), &stubOpportunityStore{})

	rec := doRequest(t, router, "/api/stats")
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats reporting.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "run-1", stats.RunID)
	assert.Equal(t, 11, stats.TotalCustomers)
	assert.Equal(t, 10, stats.EligibleCustomers)
}

func TestGetStatsNoRuns(t *testing.T) {
	router := setupTestRouter(nil, &stubOpportunityStore{})

	rec := doRequest(t, router, "/api/stats")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "no pipeline runs")
}

func TestGetCustomersPagination(t *testing.T) {
	opps := &stubOpportunityStore{records: []domain.OpportunityRecord{
		apiTestRecord("C-1", domain.PriorityHigh),
		apiTestRecord("C-2", domain.PriorityMedium),
		apiTestRecord("C-3", domain.PriorityLow),
	}}
	router := setupTestRouter(apiTestSummary(), opps)

	rec := doRequest(t, router, "/api/customers?page=2&limit=2")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []domain.OpportunityRecord `json:"data"`
		Pagination PaginationMeta             `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "C-3", resp.Data[0].CustomerID)
	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	assert.False(t, resp.Pagination.HasMore)
}

func TestGetCustomersPriorityFilter(t *testing.T) {
	opps := &stubOpportunityStore{records: []domain.OpportunityRecord{
		apiTestRecord("C-1", domain.PriorityHigh),
		apiTestRecord("C-2", domain.PriorityLow),
	}}
	router := setupTestRouter(apiTestSummary(), opps)

	rec := doRequest(t, router, "/api/customers?priority=High")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []domain.OpportunityRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "C-1", resp.Data[0].CustomerID)
}

func TestGetCustomerDetail(t *testing.T) {
	opps := &stubOpportunityStore{records: []domain.OpportunityRecord{
		apiTestRecord("C-1", domain.PriorityHigh),
	}}
	router := setupTestRouter(apiTestSummary(), opps)

	rec := doRequest(t, router, "/api/customer/C-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	var record domain.OpportunityRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "PT C-1", record.CustomerName)

	rec = doRequest(t, router, "/api/customer/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchRequiresQuery(t *testing.T) {
	router := setupTestRouter(apiTestSummary(), &stubOpportunityStore{})

	rec := doRequest(t, router, "/api/search")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch(t *testing.T) {
	opps := &stubOpportunityStore{records: []domain.OpportunityRecord{
		apiTestRecord("C-1", domain.PriorityHigh),
		apiTestRecord("C-2", domain.PriorityLow),
	}}
	router := setupTestRouter(apiTestSummary(), opps)

	rec := doRequest(t, router, "/api/search?q=C-2")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Query   string                     `json:"query"`
		Count   int                        `json:"count"`
		Results []domain.OpportunityRecord `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "C-2", resp.Query)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "C-2", resp.Results[0].CustomerID)
}

func TestGetChartData(t *testing.T) {
	opps := &stubOpportunityStore{records: []domain.OpportunityRecord{
		apiTestRecord("C-1", domain.PriorityHigh),
		apiTestRecord("C-2", domain.PriorityLow),
	}}
	router := setupTestRouter(apiTestSummary(), opps)

	rec := doRequest(t, router, "/api/chart-data")
	assert.Equal(t, http.StatusOK, rec.Code)

	var data reporting.ChartData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	assert.Equal(t, 2, data.Total)
	assert.Len(t, data.Points, 2)
}

func TestGetStrategies(t *testing.T) {
	opps := &stubOpportunityStore{facets: []reporting.Facet{
		{Value: "star_client", Count: 3},
		{Value: "sniper_zone", Count: 5},
	}}
	router := setupTestRouter(apiTestSummary(), opps)

	rec := doRequest(t, router, "/api/strategies")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Strategies  []StrategyBucket `json:"strategies"`
		TotalUnique int              `json:"total_unique"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.TotalUnique)
	assert.Equal(t, "RETENTION", resp.Strategies[0].Strategy)
	assert.Equal(t, 3, resp.Strategies[0].Count)
	assert.NotEmpty(t, resp.Strategies[0].Color)
}

func TestGetIndustries(t *testing.T) {
	opps := &stubOpportunityStore{facets: []reporting.Facet{
		{Value: "GOVERNMENT", Count: 7},
	}}
	router := setupTestRouter(apiTestSummary(), opps)

	rec := doRequest(t, router, "/api/industries")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Industries  []reporting.Facet `json:"industries"`
		TotalUnique int               `json:"total_unique"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Industries, 1)
	assert.Equal(t, "GOVERNMENT", resp.Industries[0].Value)
}

func TestRunEndpoints(t *testing.T) {
	router := setupTestRouter(apiTestSummary(), &stubOpportunityStore{})

	rec := doRequest(t, router, "/api/runs")
	assert.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Count int                 `json:"count"`
		Runs  []domain.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.Equal(t, 1, listResp.Count)

	rec = doRequest(t, router, "/api/runs/run-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := SetupRoutes(NewHandlers(nil), NewHealthChecker(nil, nil))

	rec := doRequest(t, router, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Contains(t, health.Checks, "database")
	assert.Contains(t, health.Checks, "latest_run")

	rec = doRequest(t, router, "/health/live")
	assert.Equal(t, http.StatusOK, rec.Code)

	var live map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &live))
	assert.Equal(t, "alive", live["status"])

	rec = doRequest(t, router, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	var ready map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, true, ready["ready"])
}
