package reporting

import (
	"context"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// ChartPoint is one customer dot on the segmentation scatters. It carries
// both axis pairs so the sales and trust charts share a payload.
type ChartPoint struct {
	CustomerID     string               `json:"customer_id"`
	CustomerName   string               `json:"customer_name"`
	BandwidthMbps  float64              `json:"bandwidth_mbps"`
	MonthlyRevenue float64              `json:"monthly_revenue"`
	TenureMonths   int                  `json:"tenure_months"`
	LTV            float64              `json:"ltv"`
	Cluster        domain.Cluster       `json:"cluster"`
	SalesQuadrant  domain.SalesQuadrant `json:"sales_quadrant"`
	TrustQuadrant  domain.TrustQuadrant `json:"trust_quadrant"`
	UpsellScore    float64              `json:"upsell_score"`
	CrossSellScore float64              `json:"cross_sell_score"`
	Priority       domain.Priority      `json:"priority"`
	Eligible       bool                 `json:"eligible"`
}

// ChartData is the scatter payload. Sampled reports how many points made
// it past the stratified cut.
type ChartData struct {
	RunID   string       `json:"run_id"`
	Total   int          `json:"total"`
	Sampled int          `json:"sampled"`
	Points  []ChartPoint `json:"points"`
}

// ChartData returns a stratified sample of the latest run's points,
// capped at the configured bound. The same run always yields the same
// sample.
func (s *Service) ChartData(ctx context.Context) (*ChartData, error) {
	var cached ChartData
	if s.fromCache(ctx, chartKey, &cached) {
		return &cached, nil
	}

	data, err := s.chartData(ctx, s.sampleLimit)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, chartKey, data)
	return data, nil
}

// ChartDataFull returns every point of the latest run. Large runs make
// this an expensive payload; the dashboard only asks for it on export.
func (s *Service) ChartDataFull(ctx context.Context) (*ChartData, error) {
	return s.chartData(ctx, 0)
}

func (s *Service) chartData(ctx context.Context, limit int) (*ChartData, error) {
	summary, err := s.runs.Latest(ctx)
	if err != nil {
		return nil, err
	}

	fetch := summary.ScoredRows
	if fetch <= 0 {
		fetch = 1
	}
	records, _, err := s.opps.List(ctx, summary.RunID, ListFilter{Limit: fetch})
	if err != nil {
		return nil, err
	}

	points := samplePoints(records, limit)
	return &ChartData{
		RunID:   summary.RunID,
		Total:   len(records),
		Sampled: len(points),
		Points:  points,
	}, nil
}

// samplePoints keeps at most limit points, allocating each cluster a
// share proportional to its size and striding through the cluster's rows
// in rank order. Input order decides output order, so the cut is
// reproducible run over run.
func samplePoints(records []domain.OpportunityRecord, limit int) []ChartPoint {
	if limit <= 0 || len(records) <= limit {
		points := make([]ChartPoint, len(records))
		for i := range records {
			points[i] = toChartPoint(&records[i])
		}
		return points
	}

	byCluster := make(map[domain.Cluster][]int, 3)
	for i := range records {
		c := records[i].Cluster
		byCluster[c] = append(byCluster[c], i)
	}

	points := make([]ChartPoint, 0, limit)
	for _, cluster := range domain.Clusters() {
		group := byCluster[cluster]
		if len(group) == 0 {
			continue
		}
		quota := len(group) * limit / len(records)
		if quota < 1 {
			quota = 1
		}
		stride := (len(group) + quota - 1) / quota
		for i := 0; i < len(group); i += stride {
			points = append(points, toChartPoint(&records[group[i]]))
		}
	}

	if len(points) > limit {
		points = points[:limit]
	}
	return points
}

func toChartPoint(o *domain.OpportunityRecord) ChartPoint {
	return ChartPoint{
		CustomerID:     o.CustomerID,
		CustomerName:   o.CustomerName,
		BandwidthMbps:  o.BandwidthMbps,
		MonthlyRevenue: o.MonthlyRevenue,
		TenureMonths:   o.TenureMonths,
		LTV:            o.LTV,
		Cluster:        o.Cluster,
		SalesQuadrant:  o.SalesQuadrant,
		TrustQuadrant:  o.TrustQuadrant,
		UpsellScore:    o.UpsellScore,
		CrossSellScore: o.CrossSellScore,
		Priority:       o.Priority,
		Eligible:       o.Eligible,
	}
}
