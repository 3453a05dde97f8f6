package domain

// Cluster is a bandwidth/product regime grouping. Comparisons (medians,
// quadrants, affordability) only ever happen within one cluster so that
// sub-1 Mbps ATM links are never measured against 10 Gbps backbone links.
type Cluster string

const (
	ClusterLow  Cluster = "low"
	ClusterMid  Cluster = "mid"
	ClusterHigh Cluster = "high"
)

// Clusters lists all clusters in ascending bandwidth order.
func Clusters() []Cluster {
	return []Cluster{ClusterLow, ClusterMid, ClusterHigh}
}

// Valid reports whether c is a known cluster label.
func (c Cluster) Valid() bool {
	switch c {
	case ClusterLow, ClusterMid, ClusterHigh:
		return true
	}
	return false
}

// ExclusionReason explains why a record was taken out of upsell scoring.
type ExclusionReason string

const (
	// ExclusionSubBroadband marks sub-1 Mbps device links (ATM terminals,
	// IoT sensors) that have no broadband to upgrade.
	ExclusionSubBroadband ExclusionReason = "sub_broadband_device"
	// ExclusionCapacityCeiling marks links already at the top of the
	// deliverable bandwidth range.
	ExclusionCapacityCeiling ExclusionReason = "capacity_ceiling"
)

// Description returns the human-readable exclusion explanation used in
// reports and reasoning text.
func (r ExclusionReason) Description() string {
	switch r {
	case ExclusionSubBroadband:
		return "sub-broadband device, not upsell-eligible"
	case ExclusionCapacityCeiling:
		return "already at capacity ceiling"
	}
	return string(r)
}

// ClusterAssignment binds a customer to its cluster for one pipeline run.
// Reason is set if and only if Eligible is false. Assignments are created
// once per run and never mutated afterward.
type ClusterAssignment struct {
	CustomerID string          `json:"customer_id" db:"customer_id"`
	Cluster    Cluster         `json:"cluster" db:"cluster"`
	Eligible   bool            `json:"eligible" db:"eligible"`
	Reason     ExclusionReason `json:"exclusion_reason,omitempty" db:"exclusion_reason"`
	// RuleUsed records whether the product rule or the bandwidth fallback
	// decided the cluster, for run-summary diagnostics.
	RuleUsed string `json:"rule_used" db:"rule_used"`
}
