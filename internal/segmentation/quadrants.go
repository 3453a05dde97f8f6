package segmentation

import (
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Classifier places customers into the two 2x2 matrices. The sales matrix
// compares revenue and bandwidth against the customer's own cluster
// medians; the trust matrix compares LTV against an absolute rupiah
// threshold and tenure against the cluster tenure median. Values sitting
// exactly on a median classify to the high side.
type Classifier struct {
	thresholds        domain.ThresholdSet
	ltvFloorYears     float64
	trustLTVThreshold float64
	excludeAll        bool
}

func NewClassifier(thresholds domain.ThresholdSet, cfg config.ClusteringConfig) *Classifier {
	return &Classifier{
		thresholds:        thresholds,
		ltvFloorYears:     cfg.LTVFloorYears,
		trustLTVThreshold: cfg.TrustLTVThreshold,
		excludeAll:        cfg.ExcludeFromAllMatrices(),
	}
}

// Classify labels one customer on both matrices. Excluded customers never
// receive a sales quadrant; whether they still receive a trust quadrant
// depends on the configured exclusion scope, since tenure and revenue are
// meaningful even when bandwidth is not.
func (c *Classifier) Classify(rec *domain.CustomerRecord, assignment domain.ClusterAssignment) domain.QuadrantLabel {
	medians, fallback := c.thresholds.ForCluster(assignment.Cluster)
	ltv := rec.LTV(c.ltvFloorYears)

	label := domain.QuadrantLabel{
		CustomerID:     rec.ID,
		LTV:            ltv,
		GlobalFallback: fallback,
	}

	if assignment.Eligible {
		label.Sales = salesCell(rec.MonthlyRevenue >= medians.Revenue, rec.BandwidthMbps >= medians.Bandwidth)
	} else {
		label.Sales = domain.SalesExcluded
	}

	if assignment.Eligible || !c.excludeAll {
		label.Trust = trustCell(ltv >= c.trustLTVThreshold, float64(rec.TenureMonths) >= medians.TenureMonths)
	} else {
		label.Trust = domain.TrustExcluded
	}

	label.PriceSensitive = label.Trust == domain.TrustLoyalValue

	ss := label.Sales.StrategyFor()
	label.SalesStrategy, label.SalesAction = ss.Strategy, ss.Action
	ts := label.Trust.StrategyFor()
	label.TrustStrategy, label.TrustAction = ts.Strategy, ts.Action
	return label
}

// ClassifyAll labels every record, preserving input order.
func (c *Classifier) ClassifyAll(records []*domain.CustomerRecord, assignments map[string]domain.ClusterAssignment) []domain.QuadrantLabel {
	labels := make([]domain.QuadrantLabel, 0, len(records))
	for _, rec := range records {
		labels = append(labels, c.Classify(rec, assignments[rec.ID]))
	}
	return labels
}

func salesCell(highRevenue, highBandwidth bool) domain.SalesQuadrant {
	switch {
	case highRevenue && highBandwidth:
		return domain.SalesStarClient
	case highRevenue:
		return domain.SalesRiskArea
	case highBandwidth:
		return domain.SalesSniperZone
	default:
		return domain.SalesIncubator
	}
}

func trustCell(highLTV, longTenure bool) domain.TrustQuadrant {
	switch {
	case highLTV && longTenure:
		return domain.TrustChampion
	case highLTV:
		return domain.TrustHighPotential
	case longTenure:
		return domain.TrustLoyalValue
	default:
		return domain.TrustNewbie
	}
}
