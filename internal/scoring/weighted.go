package scoring

import (
	"sort"
	"strings"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Factor fractions. Each factor normalizes to [0,1] before its configured
// weight is applied, so changing a weight never changes a fraction.
const (
	tierExact    = 1.0
	tierOneUp    = 0.8
	tierTwoUp    = 8.0 / 15
	tierMismatch = 0.2

	categoryExact    = 1.0
	categoryAdjacent = 2.0 / 3
	categoryOther    = 1.0 / 3

	bandwidthComfort  = 1.0
	bandwidthAdequate = 2.0 / 3
	bandwidthStretch  = 1.0 / 3
	bandwidthPoor     = 2.0 / 15

	industryTarget    = 1.0
	industryAffinity  = 0.8
	industryNeutral   = 1.0 / 3
	coOccurrenceMid   = 0.5
	regionalAvailable = 1.0
	regionalRemote    = 1.0 / 3

	affordExact     = 1.0
	affordOneUp     = 0.8
	affordStretch   = 7.0 / 15
	affordTooFar    = 2.0 / 15
	affordBundleFit = 8.0 / 15
	affordBundleOff = 0.2

	tenureFit     = 1.0
	tenureNearFit = 0.7
	tenureMidFit  = 0.6
	tenureMisfit  = 0.3

	// Extra nudge for retention-tagged products offered to customers
	// whose contract status is unverified.
	retentionBoost = 0.05
)

// Categories treated as adjacent for the category-match factor.
var adjacentCategories = map[string]bool{
	"TECHNOLOGY SERVICES":    true,
	"DIGITAL INFRASTRUCTURE": true,
}

// WeightedStrategy is the deterministic eight-factor scorer. Every
// catalog product the customer does not already hold is scored as a
// candidate; products in the customer's own category count as upsell,
// everything else as cross-sell.
type WeightedStrategy struct {
	cfg     config.ScoringConfig
	catalog *Catalog
	co      *CoOccurrence
	weights map[domain.Factor]float64
	targets map[string]bool
}

// NewWeightedStrategy builds the weighted scorer. Weight-sum validation
// happens at config load; the strategy trusts its inputs.
func NewWeightedStrategy(cfg config.ScoringConfig, catalog *Catalog, co *CoOccurrence) *WeightedStrategy {
	targets := make(map[string]bool, len(cfg.TargetIndustries))
	for _, t := range cfg.TargetIndustries {
		targets[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	return &WeightedStrategy{
		cfg:     cfg,
		catalog: catalog,
		co:      co,
		weights: cfg.Weights.AsMap(),
		targets: targets,
	}
}

func (s *WeightedStrategy) Name() string { return config.StrategyWeighted }

type candidate struct {
	product *Product
	offer   domain.Offer
	upsell  bool
}

// Score evaluates every offerable catalog product for one customer and
// assembles its propensity output. Excluded customers get no upsell
// candidates and a zero upsell score, but cross-sell offers still apply:
// a capped ATM line can still buy CCTV.
func (s *WeightedStrategy) Score(rec *domain.CustomerRecord, assignment domain.ClusterAssignment, label domain.QuadrantLabel) domain.PropensityScore {
	held := make(map[string]bool, len(rec.Products))
	for _, p := range rec.Products {
		held[strings.ToUpper(strings.TrimSpace(p))] = true
	}
	customerTier := TierLevelFor(rec.TierGroup)
	_, arpuLevel := ARPUBand(rec.MonthlyRevenue)

	var candidates []candidate
	for i := range s.catalog.Products {
		p := &s.catalog.Products[i]
		if held[strings.ToUpper(p.Name)] {
			continue
		}
		upsell := strings.EqualFold(p.Category, rec.Category)
		if upsell && !assignment.Eligible {
			continue
		}

		contribs := s.contributions(rec, p, customerTier, arpuLevel)
		total := 0.0
		for _, c := range contribs {
			total += c.Weighted
		}
		if rec.TenureMonths <= 0 && p.HasTag("retention") {
			total += retentionBoost
		}
		if total > 1 {
			total = 1
		}

		candidates = append(candidates, candidate{
			product: p,
			upsell:  upsell,
			offer: domain.Offer{
				ProductName:   p.Name,
				Score:         total,
				Priority:      PriorityFor(total, s.cfg),
				Contributions: contribs,
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].offer.Score != candidates[j].offer.Score {
			return candidates[i].offer.Score > candidates[j].offer.Score
		}
		return candidates[i].product.Name < candidates[j].product.Name
	})

	var upsellScore, crossSellScore float64
	for _, c := range candidates {
		if c.upsell && c.offer.Score > upsellScore {
			upsellScore = c.offer.Score
		}
		if !c.upsell && c.offer.Score > crossSellScore {
			crossSellScore = c.offer.Score
		}
	}

	topN := s.cfg.TopOffers
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}
	offers := make([]domain.Offer, 0, topN)
	for _, c := range candidates[:topN] {
		c.offer.Reasoning = buildReasoning(rec, c.product, c.offer.Contributions)
		offers = append(offers, c.offer)
	}

	return domain.PropensityScore{
		CustomerID:     rec.ID,
		UpsellScore:    upsellScore,
		CrossSellScore: crossSellScore,
		Value12M:       rec.MonthlyRevenue * 12,
		Confidence:     Confidence(len(offers)),
		Priority:       PriorityFor(upsellScore, s.cfg),
		Offers:         offers,
		TenureStrategy: domain.StrategyForTenure(rec.TenureMonths),
		ScoredBy:       s.Name(),
	}
}

// contributions computes all eight factor fractions for one candidate in
// canonical factor order.
func (s *WeightedStrategy) contributions(rec *domain.CustomerRecord, p *Product, customerTier, arpuLevel int) []domain.FactorContribution {
	fractions := map[domain.Factor]float64{
		domain.FactorTierMatch:     tierFraction(customerTier, p.TierLevel),
		domain.FactorCategory:      categoryFraction(rec.Category, p.Category),
		domain.FactorBandwidthFit:  bandwidthFraction(rec, p),
		domain.FactorIndustry:      s.industryFraction(rec.Industry, p),
		domain.FactorCoOccurrence:  s.coOccurrenceFraction(rec.Products, p.Name),
		domain.FactorRegional:      regionalFraction(rec.Region, p),
		domain.FactorAffordability: affordabilityFraction(rec.MonthlyRevenue, arpuLevel, p.CostTier),
		domain.FactorTenure:        tenureFraction(rec.TenureMonths, p.Complexity),
	}

	contribs := make([]domain.FactorContribution, 0, len(fractions))
	for _, f := range domain.Factors() {
		raw := fractions[f]
		weight := s.weights[f]
		contribs = append(contribs, domain.FactorContribution{
			Factor:   f,
			Raw:      raw,
			Weight:   weight,
			Weighted: raw * weight,
		})
	}
	return contribs
}

// tierFraction rewards same-tier and one-step-up offers; anything more
// than two steps away, including downgrades, scores near the floor.
func tierFraction(customerTier, productTier int) float64 {
	switch productTier - customerTier {
	case 0:
		return tierExact
	case 1:
		return tierOneUp
	case 2:
		return tierTwoUp
	default:
		return tierMismatch
	}
}

func categoryFraction(customerCategory, productCategory string) float64 {
	if strings.EqualFold(customerCategory, productCategory) {
		return categoryExact
	}
	if adjacentCategories[strings.ToUpper(customerCategory)] && adjacentCategories[strings.ToUpper(productCategory)] {
		return categoryAdjacent
	}
	return categoryOther
}

// bandwidthFraction checks whether the customer's link can carry the
// product. IP-only customers are a special case: connectivity products are
// exactly what they are missing.
func bandwidthFraction(rec *domain.CustomerRecord, p *Product) float64 {
	if rec.BandwidthKind == domain.BandwidthIPOnly {
		if strings.EqualFold(p.Category, "Connectivity") {
			return bandwidthComfort
		}
		if p.MinBandwidthMbps == 0 {
			return bandwidthComfort
		}
		return bandwidthStretch
	}
	if p.MinBandwidthMbps == 0 {
		return bandwidthComfort
	}
	switch bw := rec.BandwidthMbps; {
	case bw >= p.MinBandwidthMbps*1.5:
		return bandwidthComfort
	case bw >= p.MinBandwidthMbps:
		return bandwidthAdequate
	case bw >= p.MinBandwidthMbps*0.5:
		return bandwidthStretch
	default:
		return bandwidthPoor
	}
}

func (s *WeightedStrategy) industryFraction(industry string, p *Product) float64 {
	if p.TargetsIndustry(industry) {
		return industryTarget
	}
	if len(p.TargetIndustries) == 0 && s.targets[strings.ToUpper(strings.TrimSpace(industry))] {
		return industryTarget
	}
	if isRegulated(industry) && strings.Contains(p.Name, "Security") {
		return industryAffinity
	}
	if isManufacturing(industry) && strings.Contains(p.Name, "IoT") {
		return industryAffinity
	}
	return industryNeutral
}

// coOccurrenceFraction falls back to the midpoint when the customer holds
// no known products; no portfolio is weak evidence, not negative evidence.
func (s *WeightedStrategy) coOccurrenceFraction(held []string, candidate string) float64 {
	if len(held) == 0 {
		return coOccurrenceMid
	}
	return s.co.Boost(held, candidate)
}

func regionalFraction(region string, p *Product) float64 {
	if p.AvailableIn(region) {
		return regionalAvailable
	}
	return regionalRemote
}

// affordabilityFraction compares the product's cost tier with the
// customer's ARPU band. Bundled/free customers only fit entry-cost
// add-ons.
func affordabilityFraction(revenue float64, arpuLevel, costTier int) float64 {
	if revenue == 0 {
		if costTier == 1 {
			return affordBundleFit
		}
		return affordBundleOff
	}
	switch costTier - arpuLevel {
	case 0:
		return affordExact
	case 1:
		return affordOneUp
	case 2:
		return affordStretch
	default:
		return affordTooFar
	}
}

// tenureFraction matches product complexity to relationship maturity:
// simple products for young or at-risk accounts, complex products for
// established ones.
func tenureFraction(tenureMonths int, complexity Complexity) float64 {
	years := float64(tenureMonths) / 12
	switch {
	case tenureMonths <= 0, years < 0.5:
		if complexity == ComplexitySimple {
			return tenureFit
		}
		return tenureMisfit
	case years < 2:
		if complexity == ComplexitySimple || complexity == ComplexityMedium {
			return tenureFit
		}
		return tenureMidFit
	case years <= 5:
		return tenureFit
	default:
		if complexity == ComplexityMedium || complexity == ComplexityComplex {
			return tenureFit
		}
		return tenureNearFit
	}
}
