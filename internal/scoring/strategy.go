package scoring

import (
	"fmt"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Strategy scores one customer's upsell and cross-sell propensity and
// produces its ranked offers. Implementations must be deterministic for
// identical inputs; the run summary records which strategy produced a
// ranked list so scores from different strategies are never compared.
type Strategy interface {
	Name() string
	Score(rec *domain.CustomerRecord, assignment domain.ClusterAssignment, label domain.QuadrantLabel) domain.PropensityScore
}

// New builds the configured scoring strategy. The weighted strategy is the
// deterministic default; trained_model loads a calibrated artifact and
// fails fast when the artifact is missing or uncalibrated.
func New(cfg config.ScoringConfig, catalog *Catalog, co *CoOccurrence) (Strategy, error) {
	switch cfg.Strategy {
	case config.StrategyWeighted, "":
		return NewWeightedStrategy(cfg, catalog, co), nil
	case config.StrategyTrainedModel:
		return NewTrainedModelStrategy(cfg, catalog)
	default:
		return nil, &domain.ConfigurationError{
			Field:  "scoring.strategy",
			Reason: fmt.Sprintf("unknown strategy %q", cfg.Strategy),
		}
	}
}

// PriorityFor maps a propensity score to its priority tier using the
// configured cutoffs.
func PriorityFor(score float64, cfg config.ScoringConfig) domain.Priority {
	switch {
	case score >= cfg.HighCutoff:
		return domain.PriorityHigh
	case score >= cfg.MediumCutoff:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Confidence grows with the number of offers backing a recommendation and
// saturates at 0.95.
func Confidence(offerCount int) float64 {
	c := 0.6 + 0.1*float64(offerCount)
	if c > 0.95 {
		return 0.95
	}
	return c
}
