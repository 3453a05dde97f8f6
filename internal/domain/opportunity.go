package domain

import "time"

// OpportunityRecord is the denormalized per-customer output row of a
// pipeline run. It joins the customer profile with its cluster, quadrant
// placements, score and ranked offers so downstream consumers never need
// to re-join intermediate stages.
type OpportunityRecord struct {
	RunID          string         `json:"run_id" db:"run_id"`
	CustomerID     string         `json:"customer_id" db:"customer_id"`
	CustomerName   string         `json:"customer_name" db:"customer_name"`
	Industry       string         `json:"industry" db:"industry"`
	Region         string         `json:"region" db:"region"`
	Category       string         `json:"category" db:"category"`
	TierGroup      string         `json:"tier_group" db:"tier_group"`
	MonthlyRevenue float64        `json:"monthly_revenue" db:"monthly_revenue"`
	BandwidthMbps  float64        `json:"bandwidth_mbps" db:"bandwidth_mbps"`
	TenureMonths   int            `json:"tenure_months" db:"tenure_months"`
	Cluster        Cluster        `json:"cluster" db:"cluster"`
	Eligible       bool           `json:"eligible" db:"eligible"`
	ExcludedReason string         `json:"excluded_reason,omitempty" db:"excluded_reason"`
	SalesQuadrant  SalesQuadrant  `json:"sales_quadrant" db:"sales_quadrant"`
	TrustQuadrant  TrustQuadrant  `json:"trust_quadrant" db:"trust_quadrant"`
	LTV            float64        `json:"ltv" db:"ltv"`
	UpsellScore    float64        `json:"upsell_score" db:"upsell_score"`
	CrossSellScore float64        `json:"cross_sell_score" db:"cross_sell_score"`
	Value12M       float64        `json:"value_12m" db:"value_12m"`
	Confidence     float64        `json:"confidence" db:"confidence"`
	Priority       Priority       `json:"priority" db:"priority"`
	TenureStrategy TenureStrategy `json:"tenure_strategy" db:"tenure_strategy"`
	Offers         []Offer        `json:"offers" db:"-"`
	// Potentials are gated: a score at or below the configured gate
	// contributes zero regardless of the customer's value.
	UpsellPotential    float64   `json:"upsell_potential" db:"upsell_potential"`
	CrossSellPotential float64   `json:"cross_sell_potential" db:"cross_sell_potential"`
	PotentialValue     float64   `json:"potential_value" db:"potential_value"`
	Rank               int       `json:"rank" db:"rank"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// TopOffer returns the highest-scoring offer, if any.
func (o *OpportunityRecord) TopOffer() (Offer, bool) {
	if len(o.Offers) == 0 {
		return Offer{}, false
	}
	return o.Offers[0], true
}

// RunSummary is the aggregate outcome of one pipeline run.
type RunSummary struct {
	RunID          string                `json:"run_id" db:"run_id"`
	SourceFile     string                `json:"source_file" db:"source_file"`
	StartedAt      time.Time             `json:"started_at" db:"started_at"`
	FinishedAt     time.Time             `json:"finished_at" db:"finished_at"`
	TotalRows      int                   `json:"total_rows" db:"total_rows"`
	ImportedRows   int                   `json:"imported_rows" db:"imported_rows"`
	RejectedRows   int                   `json:"rejected_rows" db:"rejected_rows"`
	DuplicateRows  int                   `json:"duplicate_rows" db:"duplicate_rows"`
	ExcludedRows   int                   `json:"excluded_rows" db:"excluded_rows"`
	ScoredRows     int                   `json:"scored_rows" db:"scored_rows"`
	ClusterCounts  map[Cluster]int       `json:"cluster_counts" db:"-"`
	SalesQuadrants map[SalesQuadrant]int `json:"sales_quadrants" db:"-"`
	TrustQuadrants map[TrustQuadrant]int `json:"trust_quadrants" db:"-"`
	Priorities     map[Priority]int      `json:"priorities" db:"-"`
	UpsellValue    float64               `json:"upsell_value" db:"upsell_value"`
	CrossSellValue float64               `json:"cross_sell_value" db:"cross_sell_value"`
	MeanQuality    float64               `json:"mean_quality" db:"mean_quality"`
	StrategyUsed   string                `json:"strategy_used" db:"strategy_used"`
	ConfigDigest   string                `json:"config_digest" db:"config_digest"`
	Warnings       []string              `json:"warnings,omitempty" db:"-"`
}

// Duration reports wall time for the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// TotalPotential is the combined upsell and cross-sell pipeline value.
func (s *RunSummary) TotalPotential() float64 {
	return s.UpsellValue + s.CrossSellValue
}
