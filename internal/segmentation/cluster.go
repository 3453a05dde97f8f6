package segmentation

import (
	"strings"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Rule names recorded on ClusterAssignment for diagnostics.
const (
	RuleProductKeyword    = "product_keyword"
	RuleBandwidthFallback = "bandwidth_fallback"
)

// highBandwidthMarkers identify backbone-class products. A customer with
// any of these runs infrastructure-grade links and belongs in the High
// cluster regardless of the bandwidth column.
var highBandwidthMarkers = []string{"METRO", "NETWORK", "BACKBONE", "ISP"}

// lowBandwidthMarkers identify thin-link products: branch VPNs, ATM
// uplinks, micro-business packages.
var lowBandwidthMarkers = []string{"IPVPN", "IP VPN", "VPN", "ATM", "UMKM", "MIKRO"}

// Assigner partitions customers into bandwidth/product regime clusters and
// flags records excluded from upsell consideration.
type Assigner struct {
	cfg config.ClusteringConfig
}

// NewAssigner creates an Assigner with the given cutoffs.
func NewAssigner(cfg config.ClusteringConfig) *Assigner {
	return &Assigner{cfg: cfg}
}

// Assign places one customer in exactly one cluster. The product rule wins
// when any product name is present; the bandwidth fallback covers records
// without product data. Every record gets a cluster; exclusion only
// withholds a record from upsell scoring, never from the dataset.
func (a *Assigner) Assign(rec *domain.CustomerRecord) domain.ClusterAssignment {
	assignment := domain.ClusterAssignment{
		CustomerID: rec.ID,
		Eligible:   true,
	}

	if cluster, ok := clusterFromProducts(rec); ok {
		assignment.Cluster = cluster
		assignment.RuleUsed = RuleProductKeyword
	} else {
		assignment.Cluster = a.clusterFromBandwidth(rec.BandwidthMbps)
		assignment.RuleUsed = RuleBandwidthFallback
	}

	switch {
	case assignment.Cluster == domain.ClusterLow && rec.BandwidthMbps < a.cfg.SubBroadbandFloorMbps:
		assignment.Eligible = false
		assignment.Reason = domain.ExclusionSubBroadband
	case assignment.Cluster == domain.ClusterHigh && rec.BandwidthMbps > a.cfg.CapacityCeilingMbps:
		assignment.Eligible = false
		assignment.Reason = domain.ExclusionCapacityCeiling
	}

	return assignment
}

// AssignAll assigns every record, preserving input order.
func (a *Assigner) AssignAll(records []*domain.CustomerRecord) []domain.ClusterAssignment {
	out := make([]domain.ClusterAssignment, 0, len(records))
	for _, rec := range records {
		out = append(out, a.Assign(rec))
	}
	return out
}

// IndexAssignments keys assignments by customer id for threshold and
// quadrant lookups.
func IndexAssignments(assignments []domain.ClusterAssignment) map[string]domain.ClusterAssignment {
	idx := make(map[string]domain.ClusterAssignment, len(assignments))
	for _, a := range assignments {
		idx[a.CustomerID] = a
	}
	return idx
}

// clusterFromProducts applies the product keyword rule across the
// customer's product names and service name. High markers outrank low
// markers; a product set matching neither reads as corporate-standard Mid.
func clusterFromProducts(rec *domain.CustomerRecord) (domain.Cluster, bool) {
	names := make([]string, 0, len(rec.Products)+1)
	for _, p := range rec.Products {
		names = append(names, strings.ToUpper(p))
	}
	if rec.ServiceName != "" {
		names = append(names, strings.ToUpper(rec.ServiceName))
	}
	if len(names) == 0 {
		return "", false
	}

	anyMarker := func(markers []string) bool {
		for _, name := range names {
			for _, m := range markers {
				if strings.Contains(name, m) {
					return true
				}
			}
		}
		return false
	}

	if anyMarker(highBandwidthMarkers) {
		return domain.ClusterHigh, true
	}
	if anyMarker(lowBandwidthMarkers) {
		return domain.ClusterLow, true
	}
	return domain.ClusterMid, true
}

func (a *Assigner) clusterFromBandwidth(mbps float64) domain.Cluster {
	switch {
	case mbps < a.cfg.LowMaxMbps:
		return domain.ClusterLow
	case mbps <= a.cfg.MidMaxMbps:
		return domain.ClusterMid
	default:
		return domain.ClusterHigh
	}
}
