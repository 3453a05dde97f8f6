package segmentation

import (
	"sort"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// ComputeThresholds builds the immutable ThresholdSet for one pipeline run.
// Medians are computed per cluster, per axis, over eligible members only,
// so an excluded 0.5 Mbps ATM link never drags down its cluster's cut
// points. Clusters with fewer than minSize eligible members get no medians
// of their own and are listed in Undefined; their customers classify
// against the global medians. Returns InsufficientDataError when no
// eligible records exist at all.
func ComputeThresholds(records []*domain.CustomerRecord, assignments map[string]domain.ClusterAssignment, minSize int) (domain.ThresholdSet, error) {
	byCluster := make(map[domain.Cluster][]*domain.CustomerRecord)
	var eligible []*domain.CustomerRecord

	for _, rec := range records {
		a, ok := assignments[rec.ID]
		if !ok || !a.Eligible {
			continue
		}
		byCluster[a.Cluster] = append(byCluster[a.Cluster], rec)
		eligible = append(eligible, rec)
	}

	if len(eligible) == 0 {
		return domain.ThresholdSet{}, &domain.InsufficientDataError{
			Stage: "threshold computation",
			Need:  1,
			Got:   0,
		}
	}

	ts := domain.ThresholdSet{
		PerCluster:     make(map[domain.Cluster]domain.AxisMedians),
		Global:         axisMedians(eligible),
		MinClusterSize: minSize,
	}

	for _, cluster := range domain.Clusters() {
		members := byCluster[cluster]
		if len(members) < minSize {
			ts.Undefined = append(ts.Undefined, cluster)
			continue
		}
		ts.PerCluster[cluster] = axisMedians(members)
	}

	return ts, nil
}

func axisMedians(records []*domain.CustomerRecord) domain.AxisMedians {
	revenues := make([]float64, 0, len(records))
	bandwidths := make([]float64, 0, len(records))
	tenures := make([]float64, 0, len(records))
	for _, r := range records {
		revenues = append(revenues, r.MonthlyRevenue)
		bandwidths = append(bandwidths, r.BandwidthMbps)
		tenures = append(tenures, float64(r.TenureMonths))
	}
	return domain.AxisMedians{
		Revenue:      median(revenues),
		Bandwidth:    median(bandwidths),
		TenureMonths: median(tenures),
	}
}

// median averages the two middle values on even counts, matching the
// descriptive statistics the cut points were tuned against.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

// DeriveCutoffs returns data-driven Low/Mid bandwidth boundaries from the
// dataset's own distribution. Only connectivity-kind bandwidths
// participate; IP counts and bandwidth-free services would drag the
// percentiles to zero.
func DeriveCutoffs(records []*domain.CustomerRecord, cfg config.ClusteringConfig) (lowMax, midMax float64) {
	var bandwidths []float64
	for _, r := range records {
		if r.BandwidthKind == domain.BandwidthConnectivity && r.BandwidthMbps > 0 {
			bandwidths = append(bandwidths, r.BandwidthMbps)
		}
	}
	if len(bandwidths) == 0 {
		return cfg.LowMaxMbps, cfg.MidMaxMbps
	}
	sort.Float64s(bandwidths)

	lowMax = percentile(bandwidths, cfg.LowPercentile/100)
	midMax = percentile(bandwidths, cfg.HighPercentile/100)
	if lowMax >= midMax {
		// Degenerate distribution, keep the configured defaults
		return cfg.LowMaxMbps, cfg.MidMaxMbps
	}
	return lowMax, midMax
}
