// Package rank orders scored opportunities into deterministic report
// lists and computes the revenue rollups and ROI projections the
// reporting surface serves.
package rank

import (
	"sort"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Rollup is one aggregation cell: how many records and how much gated
// potential revenue they carry.
type Rollup struct {
	Count     int     `json:"count"`
	Potential float64 `json:"potential"`
}

// Rollups are the precomputed aggregates for dashboard cards.
type Rollups struct {
	BySalesQuadrant map[domain.SalesQuadrant]Rollup `json:"by_sales_quadrant"`
	ByTrustQuadrant map[domain.TrustQuadrant]Rollup `json:"by_trust_quadrant"`
	ByPriority      map[domain.Priority]Rollup      `json:"by_priority"`
	ByCluster       map[domain.Cluster]Rollup       `json:"by_cluster"`

	UpsellPotential    float64 `json:"upsell_potential"`
	CrossSellPotential float64 `json:"cross_sell_potential"`
	TotalPotential     float64 `json:"total_potential"`
	CurrentRevenue12M  float64 `json:"current_revenue_12m"`
	MeanUpsellScore    float64 `json:"mean_upsell_score"`
}

// Ranking is the full ranked output of one run. Combined carries every
// record in rank order; the top lists are bounded report views.
type Ranking struct {
	Combined     []domain.OpportunityRecord `json:"combined"`
	TopUpsell    []domain.OpportunityRecord `json:"top_upsell"`
	TopCrossSell []domain.OpportunityRecord `json:"top_cross_sell"`
	Rollups      Rollups                    `json:"rollups"`
	Scenarios    []ScenarioProjection       `json:"scenarios"`
}

// Ranker computes potentials, sorts, and aggregates scored records.
type Ranker struct {
	roi  config.ROIConfig
	topN int
}

func NewRanker(roi config.ROIConfig, topN int) *Ranker {
	if topN <= 0 {
		topN = 10
	}
	return &Ranker{roi: roi, topN: topN}
}

// Rank orders records by upsell score, then gated potential, then
// customer id. The ordering has no ties left by construction, so two runs
// over identical input produce identical output.
func (r *Ranker) Rank(records []domain.OpportunityRecord) Ranking {
	ranked := make([]domain.OpportunityRecord, len(records))
	copy(ranked, records)

	for i := range ranked {
		up, cross := Potential(ranked[i].UpsellScore, ranked[i].CrossSellScore, ranked[i].Value12M, r.roi)
		ranked[i].UpsellPotential = up
		ranked[i].CrossSellPotential = cross
		ranked[i].PotentialValue = up + cross
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].UpsellScore != ranked[j].UpsellScore {
			return ranked[i].UpsellScore > ranked[j].UpsellScore
		}
		if ranked[i].PotentialValue != ranked[j].PotentialValue {
			return ranked[i].PotentialValue > ranked[j].PotentialValue
		}
		return ranked[i].CustomerID < ranked[j].CustomerID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	rollups := buildRollups(ranked)

	return Ranking{
		Combined:     ranked,
		TopUpsell:    r.topUpsell(ranked),
		TopCrossSell: r.topCrossSell(ranked),
		Rollups:      rollups,
		Scenarios:    Project(rollups.TotalPotential, rollups.CurrentRevenue12M, r.roi),
	}
}

// topUpsell returns the best upsell targets. Excluded customers never
// appear here no matter how their scores came out.
func (r *Ranker) topUpsell(ranked []domain.OpportunityRecord) []domain.OpportunityRecord {
	out := make([]domain.OpportunityRecord, 0, r.topN)
	for _, rec := range ranked {
		if !rec.Eligible || rec.UpsellScore <= 0 {
			continue
		}
		out = append(out, rec)
		if len(out) >= r.topN {
			break
		}
	}
	return out
}

// topCrossSell returns the best cross-sell targets. Exclusion does not
// apply: a capacity-capped or sub-broadband customer can still buy
// adjacent products.
func (r *Ranker) topCrossSell(ranked []domain.OpportunityRecord) []domain.OpportunityRecord {
	candidates := make([]domain.OpportunityRecord, 0, len(ranked))
	for _, rec := range ranked {
		if rec.CrossSellScore <= 0 {
			continue
		}
		candidates = append(candidates, rec)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].CrossSellScore != candidates[j].CrossSellScore {
			return candidates[i].CrossSellScore > candidates[j].CrossSellScore
		}
		if candidates[i].CrossSellPotential != candidates[j].CrossSellPotential {
			return candidates[i].CrossSellPotential > candidates[j].CrossSellPotential
		}
		return candidates[i].CustomerID < candidates[j].CustomerID
	})
	if len(candidates) > r.topN {
		candidates = candidates[:r.topN]
	}
	return candidates
}

func buildRollups(ranked []domain.OpportunityRecord) Rollups {
	rollups := Rollups{
		BySalesQuadrant: make(map[domain.SalesQuadrant]Rollup),
		ByTrustQuadrant: make(map[domain.TrustQuadrant]Rollup),
		ByPriority:      make(map[domain.Priority]Rollup),
		ByCluster:       make(map[domain.Cluster]Rollup),
	}
	var scoreSum float64
	for _, rec := range ranked {
		add(rollups.BySalesQuadrant, rec.SalesQuadrant, rec.PotentialValue)
		add(rollups.ByTrustQuadrant, rec.TrustQuadrant, rec.PotentialValue)
		add(rollups.ByPriority, rec.Priority, rec.PotentialValue)
		add(rollups.ByCluster, rec.Cluster, rec.PotentialValue)
		rollups.UpsellPotential += rec.UpsellPotential
		rollups.CrossSellPotential += rec.CrossSellPotential
		rollups.CurrentRevenue12M += rec.Value12M
		scoreSum += rec.UpsellScore
	}
	rollups.TotalPotential = rollups.UpsellPotential + rollups.CrossSellPotential
	if len(ranked) > 0 {
		rollups.MeanUpsellScore = scoreSum / float64(len(ranked))
	}
	return rollups
}

func add[K comparable](m map[K]Rollup, key K, potential float64) {
	r := m[key]
	r.Count++
	r.Potential += potential
	m[key] = r
}
