package rank

import "github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"

// ScenarioProjection is one named conversion assumption applied to the
// total gated potential of a run. UpliftPercent relates the projection
// to the book of business it would grow.
type ScenarioProjection struct {
	Name             string  `json:"name"`
	ConversionRate   float64 `json:"conversion_rate"`
	ProjectedRevenue float64 `json:"projected_revenue"`
	UpliftPercent    float64 `json:"uplift_percent"`
}

// Potential converts propensity scores into annualized revenue
// potential. A score at or below the gate contributes nothing, so a
// weak signal never inflates the projections.
func Potential(upsellScore, crossSellScore, value12M float64, cfg config.ROIConfig) (upsell, cross float64) {
	if upsellScore > cfg.ScoreGate {
		upsell = value12M * cfg.UpsellRate
	}
	if crossSellScore > cfg.ScoreGate {
		cross = value12M * cfg.CrossSellRate
	}
	return upsell, cross
}

// Project applies every configured scenario to the total potential.
// currentRevenue is the annualized book of business; uplift reads zero
// when it is unknown. Scenario order follows the configuration so
// reports render stably.
func Project(totalPotential, currentRevenue float64, cfg config.ROIConfig) []ScenarioProjection {
	out := make([]ScenarioProjection, 0, len(cfg.Scenarios))
	for _, s := range cfg.Scenarios {
		p := ScenarioProjection{
			Name:             s.Name,
			ConversionRate:   s.ConversionRate,
			ProjectedRevenue: totalPotential * s.ConversionRate,
		}
		if currentRevenue > 0 {
			p.UpliftPercent = p.ProjectedRevenue / currentRevenue * 100
		}
		out = append(out, p)
	}
	return out
}
