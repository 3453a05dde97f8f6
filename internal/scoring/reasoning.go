package scoring

import (
	"fmt"
	"strings"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

const maxProfileReasons = 3

// buildReasoning writes the account-team explanation for one offer. It
// always ends with the dominant factor and its weighted value, so no two
// differently-scored offers share identical boilerplate.
func buildReasoning(rec *domain.CustomerRecord, p *Product, contribs []domain.FactorContribution) string {
	var reasons []string

	if rec.MonthlyRevenue > 0 {
		band, level := ARPUBand(rec.MonthlyRevenue)
		if level == p.CostTier {
			reasons = append(reasons, fmt.Sprintf("fits the %s budget band", band))
		}
	}
	if rec.BandwidthKind == domain.BandwidthIPOnly {
		reasons = append(reasons, "holds IP addresses without dedicated internet, bundling improves the SLA")
	}
	if strings.EqualFold(p.Category, rec.Category) && rec.Category != "" {
		reasons = append(reasons, fmt.Sprintf("complements existing %s services", rec.Category))
	}
	if isRegulated(rec.Industry) {
		reasons = append(reasons, fmt.Sprintf("compliance focus for %s", rec.Industry))
	}
	if rec.TenureMonths <= 0 {
		reasons = append(reasons, "contract renewal priority")
	} else if rec.TenureYears() > 5 {
		reasons = append(reasons, "loyal customer, premium services available")
	}
	if coRaw, ok := rawFraction(contribs, domain.FactorCoOccurrence); ok && coRaw > 0.5 {
		reasons = append(reasons, "customers with a similar portfolio also buy this")
	}
	if play, ok := PlayFor(rec.Industry); ok && play.Prioritizes(p.Name) {
		reasons = append(reasons, play.Reasoning)
	}

	if len(reasons) > maxProfileReasons {
		reasons = reasons[:maxProfileReasons]
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "recommended from the full customer profile")
	}
	if dominant, ok := dominantContribution(contribs); ok {
		reasons = append(reasons, fmt.Sprintf("strongest factor %s at %.2f", dominant.Factor, dominant.Weighted))
	}
	return strings.Join(reasons, " | ")
}

func rawFraction(contribs []domain.FactorContribution, f domain.Factor) (float64, bool) {
	for _, c := range contribs {
		if c.Factor == f {
			return c.Raw, true
		}
	}
	return 0, false
}

// dominantContribution picks the factor with the highest weighted share.
// Ties keep the earlier factor in canonical order.
func dominantContribution(contribs []domain.FactorContribution) (domain.FactorContribution, bool) {
	if len(contribs) == 0 {
		return domain.FactorContribution{}, false
	}
	best := contribs[0]
	for _, c := range contribs[1:] {
		if c.Weighted > best.Weighted {
			best = c
		}
	}
	return best, true
}
