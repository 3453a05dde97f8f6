// Package reporting serves the dashboard query surface for the most
// recent pipeline run: headline stats, filtered customer pages, chart
// samples and distributions. Aggregates are cached in Redis with a TTL;
// misses fall through to Postgres.
package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/pkg/logger"
)

// ListFilter narrows customer queries. Zero-value fields are ignored.
type ListFilter struct {
	Cluster        string
	SalesQuadrant  string
	TrustQuadrant  string
	Priority       string
	TenureStrategy string
	Industry       string
	TierGroup      string
	Search         string
	Limit          int
	Offset         int
}

// Facet is one bucket of a grouped count.
type Facet struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// RunStore reads run summaries.
type RunStore interface {
	Get(ctx context.Context, runID string) (*domain.RunSummary, error)
	Latest(ctx context.Context) (*domain.RunSummary, error)
	List(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// OpportunityStore reads scored opportunity rows.
type OpportunityStore interface {
	Get(ctx context.Context, runID, customerID string) (*domain.OpportunityRecord, error)
	List(ctx context.Context, runID string, f ListFilter) ([]domain.OpportunityRecord, int, error)
	TopUpsell(ctx context.Context, runID string, limit int) ([]domain.OpportunityRecord, error)
	TopCrossSell(ctx context.Context, runID string, limit int) ([]domain.OpportunityRecord, error)
	Distribution(ctx context.Context, runID, dimension string) ([]Facet, error)
	TopOffers(ctx context.Context, runID string, limit int) ([]Facet, error)
}

// Stats is the dashboard headline payload for one run.
type Stats struct {
	RunID             string                       `json:"run_id"`
	SourceFile        string                       `json:"source_file"`
	GeneratedAt       time.Time                    `json:"generated_at"`
	TotalCustomers    int                          `json:"total_customers"`
	EligibleCustomers int                          `json:"eligible_customers"`
	ExcludedCustomers int                          `json:"excluded_customers"`
	ClusterCounts     map[domain.Cluster]int       `json:"cluster_counts"`
	SalesQuadrants    map[domain.SalesQuadrant]int `json:"sales_quadrants"`
	TrustQuadrants    map[domain.TrustQuadrant]int `json:"trust_quadrants"`
	Priorities        map[domain.Priority]int      `json:"priorities"`
	UpsellValue       float64                      `json:"upsell_value"`
	CrossSellValue    float64                      `json:"cross_sell_value"`
	TotalPotential    float64                      `json:"total_potential"`
	MeanQuality       float64                      `json:"mean_quality"`
	Warnings          []string                     `json:"warnings,omitempty"`
}

// CustomerPage is one page of filtered customers.
type CustomerPage struct {
	RunID     string                     `json:"run_id"`
	Customers []domain.OpportunityRecord `json:"customers"`
	Total     int                        `json:"total"`
	Limit     int                        `json:"limit"`
	Offset    int                        `json:"offset"`
}

const (
	statsKey  = "cvo:stats"
	chartKey  = "cvo:chart"
	offersKey = "cvo:offers"
)

// Service answers reporting queries against the latest run.
type Service struct {
	runs        RunStore
	opps        OpportunityStore
	cache       *redis.Client // optional; nil disables caching
	ttl         time.Duration
	sampleLimit int
}

// New creates a reporting service. cache may be nil.
func New(runs RunStore, opps OpportunityStore, cache *redis.Client, cfg config.ReportingConfig) *Service {
	return &Service{
		runs:        runs,
		opps:        opps,
		cache:       cache,
		ttl:         cfg.CacheTTL(),
		sampleLimit: cfg.SampleLimit,
	}
}

// Stats returns the latest run's headline numbers.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var cached Stats
	if s.fromCache(ctx, statsKey, &cached) {
		return &cached, nil
	}

	summary, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		RunID:             summary.RunID,
		SourceFile:        summary.SourceFile,
		GeneratedAt:       summary.FinishedAt,
		TotalCustomers:    summary.ScoredRows,
		EligibleCustomers: summary.ScoredRows - summary.ExcludedRows,
		ExcludedCustomers: summary.ExcludedRows,
		ClusterCounts:     summary.ClusterCounts,
		SalesQuadrants:    summary.SalesQuadrants,
		TrustQuadrants:    summary.TrustQuadrants,
		Priorities:        summary.Priorities,
		UpsellValue:       summary.UpsellValue,
		CrossSellValue:    summary.CrossSellValue,
		TotalPotential:    summary.TotalPotential(),
		MeanQuality:       summary.MeanQuality,
		Warnings:          summary.Warnings,
	}
	s.toCache(ctx, statsKey, stats)
	return stats, nil
}

// Runs lists recent run summaries, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	return s.runs.List(ctx, limit)
}

// Run returns one run summary by id.
func (s *Service) Run(ctx context.Context, runID string) (*domain.RunSummary, error) {
	return s.runs.Get(ctx, runID)
}

// Customers pages through the latest run's rows with filters applied.
func (s *Service) Customers(ctx context.Context, f ListFilter) (*CustomerPage, error) {
	summary, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
		f.Limit = limit
	}

	records, total, err := s.opps.List(ctx, summary.RunID, f)
	if err != nil {
		return nil, err
	}
	return &CustomerPage{
		RunID:     summary.RunID,
		Customers: records,
		Total:     total,
		Limit:     limit,
		Offset:    f.Offset,
	}, nil
}

// Customer looks one customer up in the latest run.
func (s *Service) Customer(ctx context.Context, customerID string) (*domain.OpportunityRecord, error) {
	summary, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return s.opps.Get(ctx, summary.RunID, customerID)
}

// Search matches customers by name or id fragment.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.OpportunityRecord, error) {
	summary, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	records, _, err := s.opps.List(ctx, summary.RunID, ListFilter{Search: query, Limit: limit})
	return records, err
}

// TopUpsell returns the latest run's best upsell rows.
func (s *Service) TopUpsell(ctx context.Context, limit int) ([]domain.OpportunityRecord, error) {
	summary, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return s.opps.TopUpsell(ctx, summary.RunID, limit)
}

// TopCrossSell returns the latest run's best cross-sell rows.
func (s *Service) TopCrossSell(ctx context.Context, limit int) ([]domain.OpportunityRecord, error) {
	summary, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return s.opps.TopCrossSell(ctx, summary.RunID, limit)
}

// Distribution returns grouped counts for one dimension of the latest run.
func (s *Service) Distribution(ctx context.Context, dimension string) ([]Facet, error) {
	key := fmt.Sprintf("cvo:dist:%s", dimension)
	var cached []Facet
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	summary, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	facets, err := s.opps.Distribution(ctx, summary.RunID, dimension)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, key, facets)
	return facets, nil
}

// TopOffers returns the most recommended products in the latest run.
func (s *Service) TopOffers(ctx context.Context, limit int) ([]Facet, error) {
	var cached []Facet
	if s.fromCache(ctx, offersKey, &cached) {
		return cached, nil
	}

	summary, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	facets, err := s.opps.TopOffers(ctx, summary.RunID, limit)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, offersKey, facets)
	return facets, nil
}

func (s *Service) fromCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logger.Warn("reporting cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false
	}
	return true
}

func (s *Service) toCache(ctx context.Context, key string, payload interface{}) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl).Err(); err != nil {
		logger.Warn("reporting cache write failed", "key", key, "error", err)
	}
}
