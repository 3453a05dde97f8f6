package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Feature names a model artifact may reference, in canonical vector order.
var modelFeatures = []string{
	"revenue",
	"bandwidth_mbps",
	"tenure_months",
	"revenue_per_mbps",
	"revenue_growth",
	"high_value",
	"high_bandwidth",
}

// LinearModel is one exported linear head: logistic for the propensity
// classifiers, identity for the value regressor.
type LinearModel struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// ModelArtifact is the trained-model export consumed at runtime. Training
// happens offline; the artifact carries standardization parameters and
// linear heads plus the held-out metrics recorded at export time.
type ModelArtifact struct {
	Version    string    `json:"version"`
	TrainedAt  time.Time `json:"trained_at"`
	Calibrated bool      `json:"calibrated"`
	Features   []string  `json:"features"`
	Means      []float64 `json:"means"`
	Scales     []float64 `json:"scales"`

	Upsell    LinearModel `json:"upsell"`
	CrossSell LinearModel `json:"cross_sell"`
	Value12M  LinearModel `json:"value_12m"`

	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// TrainedModelStrategy scores propensities with a calibrated model
// artifact. Candidate generation and ranking mirror the weighted strategy,
// but every number in the output is a model probability, never a
// weighted-factor score.
type TrainedModelStrategy struct {
	cfg      config.ScoringConfig
	catalog  *Catalog
	artifact ModelArtifact
}

// NewTrainedModelStrategy loads and validates the model artifact. An
// uncalibrated artifact is refused outright: its scores do not live on the
// same [0,1] probability scale as the rest of the system.
func NewTrainedModelStrategy(cfg config.ScoringConfig, catalog *Catalog) (*TrainedModelStrategy, error) {
	data, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	return &TrainedModelStrategy{cfg: cfg, catalog: catalog, artifact: artifact}, nil
}

// Validate checks calibration and dimensional consistency.
func (a ModelArtifact) Validate() error {
	if !a.Calibrated {
		return &domain.ConfigurationError{
			Field:  "scoring.model_path",
			Reason: "model artifact is not probability-calibrated",
		}
	}
	if len(a.Features) == 0 {
		return &domain.ConfigurationError{Field: "scoring.model_path", Reason: "model artifact lists no features"}
	}
	known := make(map[string]bool, len(modelFeatures))
	for _, f := range modelFeatures {
		known[f] = true
	}
	for _, f := range a.Features {
		if !known[f] {
			return &domain.ConfigurationError{
				Field:  "scoring.model_path",
				Reason: fmt.Sprintf("unknown model feature %q", f),
			}
		}
	}
	n := len(a.Features)
	if len(a.Means) != n || len(a.Scales) != n {
		return &domain.ConfigurationError{Field: "scoring.model_path", Reason: "scaler dimensions do not match features"}
	}
	for _, head := range []LinearModel{a.Upsell, a.CrossSell, a.Value12M} {
		if len(head.Coefficients) != n {
			return &domain.ConfigurationError{Field: "scoring.model_path", Reason: "model coefficients do not match features"}
		}
	}
	return nil
}

func (s *TrainedModelStrategy) Name() string { return config.StrategyTrainedModel }

// Score computes model probabilities for one customer and ranks catalog
// candidates by the probability of their offer class.
func (s *TrainedModelStrategy) Score(rec *domain.CustomerRecord, assignment domain.ClusterAssignment, label domain.QuadrantLabel) domain.PropensityScore {
	x := s.featureVector(rec)
	upsell := sigmoid(s.artifact.Upsell.dot(x))
	crossSell := sigmoid(s.artifact.CrossSell.dot(x))
	value := s.artifact.Value12M.dot(x)
	if value < 0 {
		value = 0
	}

	if !assignment.Eligible {
		upsell = 0
	}

	held := make(map[string]bool, len(rec.Products))
	for _, p := range rec.Products {
		held[strings.ToUpper(strings.TrimSpace(p))] = true
	}

	type candidate struct {
		name   string
		score  float64
		upsell bool
	}
	var candidates []candidate
	for i := range s.catalog.Products {
		p := &s.catalog.Products[i]
		if held[strings.ToUpper(p.Name)] {
			continue
		}
		isUpsell := strings.EqualFold(p.Category, rec.Category)
		if isUpsell && !assignment.Eligible {
			continue
		}
		score := crossSell
		if isUpsell {
			score = upsell
		}
		candidates = append(candidates, candidate{name: p.Name, score: score, upsell: isUpsell})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})

	topN := s.cfg.TopOffers
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}
	offers := make([]domain.Offer, 0, topN)
	for _, c := range candidates[:topN] {
		reasoning := fmt.Sprintf("calibrated model %s probability %.2f", s.artifact.Version, c.score)
		if play, ok := PlayFor(rec.Industry); ok && play.Prioritizes(c.name) {
			reasoning = play.Reasoning + " | " + reasoning
		}
		offers = append(offers, domain.Offer{
			ProductName: c.name,
			Score:       c.score,
			Priority:    PriorityFor(c.score, s.cfg),
			Reasoning:   reasoning,
		})
	}

	return domain.PropensityScore{
		CustomerID:     rec.ID,
		UpsellScore:    upsell,
		CrossSellScore: crossSell,
		Value12M:       value,
		Confidence:     Confidence(len(offers)),
		Priority:       PriorityFor(upsell, s.cfg),
		Offers:         offers,
		TenureStrategy: domain.StrategyForTenure(rec.TenureMonths),
		ScoredBy:       s.Name(),
	}
}

// featureVector builds and standardizes the model input for one record.
func (s *TrainedModelStrategy) featureVector(rec *domain.CustomerRecord) []float64 {
	revenuePerMbps := 0.0
	if rec.BandwidthMbps > 0 {
		revenuePerMbps = rec.MonthlyRevenue / rec.BandwidthMbps
	}
	raw := map[string]float64{
		"revenue":          rec.MonthlyRevenue,
		"bandwidth_mbps":   rec.BandwidthMbps,
		"tenure_months":    float64(rec.TenureMonths),
		"revenue_per_mbps": revenuePerMbps,
		"revenue_growth":   rec.RevenueGrowth(),
		"high_value":       boolFeature(rec.MonthlyRevenue >= arpuHighMax),
		"high_bandwidth":   boolFeature(rec.BandwidthMbps >= 100),
	}

	x := make([]float64, len(s.artifact.Features))
	for i, name := range s.artifact.Features {
		scale := s.artifact.Scales[i]
		if scale == 0 {
			scale = 1
		}
		x[i] = (raw[name] - s.artifact.Means[i]) / scale
	}
	return x
}

func (m LinearModel) dot(x []float64) float64 {
	sum := m.Intercept
	for i, c := range m.Coefficients {
		sum += c * x[i]
	}
	return sum
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
