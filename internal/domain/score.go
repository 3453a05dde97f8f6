package domain

// Priority buckets an opportunity by its upsell score.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// TenureStrategy tags the relationship phase used by account teams.
type TenureStrategy string

const (
	TenureRenewalRisk TenureStrategy = "Renewal Risk"
	TenureGrowth      TenureStrategy = "Growth"
	TenureLoyalty     TenureStrategy = "Loyalty"
)

// StrategyForTenure maps contract tenure to a relationship phase.
// Zero months means the contract status could not be verified, which is
// itself a renewal risk.
func StrategyForTenure(months int) TenureStrategy {
	switch {
	case months <= 0:
		return TenureRenewalRisk
	case months < 24:
		return TenureGrowth
	default:
		return TenureLoyalty
	}
}

// Factor names the eight propensity factors. The set is fixed; weights are
// configurable.
type Factor string

const (
	FactorTierMatch     Factor = "tier_match"
	FactorCategory      Factor = "category"
	FactorBandwidthFit  Factor = "bandwidth_fit"
	FactorIndustry      Factor = "industry"
	FactorCoOccurrence  Factor = "co_occurrence"
	FactorRegional      Factor = "regional"
	FactorAffordability Factor = "affordability"
	FactorTenure        Factor = "tenure"
)

// Factors returns the factor names in canonical order.
func Factors() []Factor {
	return []Factor{
		FactorTierMatch,
		FactorCategory,
		FactorBandwidthFit,
		FactorIndustry,
		FactorCoOccurrence,
		FactorRegional,
		FactorAffordability,
		FactorTenure,
	}
}

// FactorContribution records one factor's raw fraction and its weighted
// share of the final score.
type FactorContribution struct {
	Factor   Factor  `json:"factor"`
	Raw      float64 `json:"raw"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// Offer is one scored product recommendation for a customer.
type Offer struct {
	ProductName   string               `json:"product_name"`
	Score         float64              `json:"score"`
	Priority      Priority             `json:"priority"`
	Reasoning     string               `json:"reasoning"`
	Contributions []FactorContribution `json:"contributions,omitempty"`
}

// PropensityScore is the scoring output for one customer: the overall
// upsell and cross-sell propensities plus the ranked best offers.
// ScoredBy names the strategy that produced the numbers; a ranked list
// must never mix scores from different strategies.
type PropensityScore struct {
	CustomerID     string         `json:"customer_id"`
	UpsellScore    float64        `json:"upsell_score"`
	CrossSellScore float64        `json:"cross_sell_score"`
	Value12M       float64        `json:"value_12m"`
	Confidence     float64        `json:"confidence"`
	Priority       Priority       `json:"priority"`
	Offers         []Offer        `json:"offers"`
	TenureStrategy TenureStrategy `json:"tenure_strategy"`
	ScoredBy       string         `json:"scored_by"`
}
