package domain

// AxisMedians holds the per-axis median cut points for one cluster.
type AxisMedians struct {
	Revenue      float64 `json:"revenue"`
	Bandwidth    float64 `json:"bandwidth"`
	TenureMonths float64 `json:"tenure_months"`
}

// ThresholdSet is the immutable result of the threshold engine for one
// pipeline run. It is computed after clustering and passed by value into
// classification; nothing mutates it afterward.
//
// A cluster with fewer eligible members than MinClusterSize has no entry in
// PerCluster and is listed in Undefined; its customers classify against
// Global instead.
type ThresholdSet struct {
	PerCluster     map[Cluster]AxisMedians `json:"per_cluster"`
	Global         AxisMedians             `json:"global"`
	Undefined      []Cluster               `json:"undefined,omitempty"`
	MinClusterSize int                     `json:"min_cluster_size"`
}

// ForCluster returns the medians to classify a member of c against, and
// whether the global fallback was used because c's thresholds are undefined.
func (t ThresholdSet) ForCluster(c Cluster) (AxisMedians, bool) {
	if m, ok := t.PerCluster[c]; ok {
		return m, false
	}
	return t.Global, true
}

// IsUndefined reports whether cluster c had too few eligible members for a
// stable median.
func (t ThresholdSet) IsUndefined(c Cluster) bool {
	for _, u := range t.Undefined {
		if u == c {
			return true
		}
	}
	return false
}
