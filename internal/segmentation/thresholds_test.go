package segmentation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

func eligibleAssignment(id string, c domain.Cluster) domain.ClusterAssignment {
	return domain.ClusterAssignment{CustomerID: id, Cluster: c, Eligible: true}
}

func TestComputeThresholdsPerCluster(t *testing.T) {
	records := []*domain.CustomerRecord{
		{ID: "L-1", MonthlyRevenue: 1_000_000, BandwidthMbps: 10, TenureMonths: 12},
		{ID: "L-2", MonthlyRevenue: 2_000_000, BandwidthMbps: 20, TenureMonths: 24},
		{ID: "L-3", MonthlyRevenue: 3_000_000, BandwidthMbps: 30, TenureMonths: 36},
		{ID: "H-1", MonthlyRevenue: 50_000_000, BandwidthMbps: 1000, TenureMonths: 6},
		{ID: "H-2", MonthlyRevenue: 70_000_000, BandwidthMbps: 2000, TenureMonths: 18},
		{ID: "H-3", MonthlyRevenue: 90_000_000, BandwidthMbps: 3000, TenureMonths: 60},
	}
	assignments := map[string]domain.ClusterAssignment{
		"L-1": eligibleAssignment("L-1", domain.ClusterLow),
		"L-2": eligibleAssignment("L-2", domain.ClusterLow),
		"L-3": eligibleAssignment("L-3", domain.ClusterLow),
		"H-1": eligibleAssignment("H-1", domain.ClusterHigh),
		"H-2": eligibleAssignment("H-2", domain.ClusterHigh),
		"H-3": eligibleAssignment("H-3", domain.ClusterHigh),
	}

	ts, err := ComputeThresholds(records, assignments, 3)
	if err != nil {
		t.Fatalf("ComputeThresholds() error = %v", err)
	}

	low, fallback := ts.ForCluster(domain.ClusterLow)
	if fallback {
		t.Fatal("low cluster unexpectedly fell back to global medians")
	}
	if low.Revenue != 2_000_000 {
		t.Errorf("low revenue median = %v, want 2000000", low.Revenue)
	}
	if low.Bandwidth != 20 {
		t.Errorf("low bandwidth median = %v, want 20", low.Bandwidth)
	}
	if low.TenureMonths != 24 {
		t.Errorf("low tenure median = %v, want 24", low.TenureMonths)
	}

	// A giant in the High cluster must not move the Low cluster's cuts.
	high, _ := ts.ForCluster(domain.ClusterHigh)
	if high.Revenue != 70_000_000 {
		t.Errorf("high revenue median = %v, want 70000000", high.Revenue)
	}
	if high.Revenue <= low.Revenue*10 {
		t.Errorf("expected high median (%v) far above low median (%v)", high.Revenue, low.Revenue)
	}

	// Mid has no members: undefined, global fallback.
	if !ts.IsUndefined(domain.ClusterMid) {
		t.Error("mid cluster should be undefined with zero members")
	}
	mid, fallback := ts.ForCluster(domain.ClusterMid)
	if !fallback {
		t.Error("mid cluster should use the global fallback")
	}
	if mid != ts.Global {
		t.Errorf("mid medians = %+v, want global %+v", mid, ts.Global)
	}
}

func TestComputeThresholdsEvenCountAveragesMiddles(t *testing.T) {
	records := []*domain.CustomerRecord{
		{ID: "M-1", MonthlyRevenue: 1_000_000, BandwidthMbps: 100, TenureMonths: 10},
		{ID: "M-2", MonthlyRevenue: 2_000_000, BandwidthMbps: 200, TenureMonths: 20},
		{ID: "M-3", MonthlyRevenue: 4_000_000, BandwidthMbps: 400, TenureMonths: 40},
		{ID: "M-4", MonthlyRevenue: 8_000_000, BandwidthMbps: 800, TenureMonths: 80},
	}
	assignments := make(map[string]domain.ClusterAssignment)
	for _, r := range records {
		assignments[r.ID] = eligibleAssignment(r.ID, domain.ClusterMid)
	}

	ts, err := ComputeThresholds(records, assignments, 3)
	if err != nil {
		t.Fatalf("ComputeThresholds() error = %v", err)
	}
	mid, _ := ts.ForCluster(domain.ClusterMid)
	if mid.Revenue != 3_000_000 {
		t.Errorf("revenue median = %v, want 3000000", mid.Revenue)
	}
	if mid.Bandwidth != 300 {
		t.Errorf("bandwidth median = %v, want 300", mid.Bandwidth)
	}
	if mid.TenureMonths != 30 {
		t.Errorf("tenure median = %v, want 30", mid.TenureMonths)
	}
}

func TestComputeThresholdsExcludedRecordsNotCounted(t *testing.T) {
	records := []*domain.CustomerRecord{
		{ID: "L-1", MonthlyRevenue: 5_000_000, BandwidthMbps: 50, TenureMonths: 12},
		{ID: "L-2", MonthlyRevenue: 7_000_000, BandwidthMbps: 70, TenureMonths: 24},
		{ID: "L-3", MonthlyRevenue: 9_000_000, BandwidthMbps: 90, TenureMonths: 36},
		// Excluded ATM link: its 0.5 Mbps must not drag the bandwidth median.
		{ID: "L-4", MonthlyRevenue: 100_000, BandwidthMbps: 0.5, TenureMonths: 120},
	}
	assignments := map[string]domain.ClusterAssignment{
		"L-1": eligibleAssignment("L-1", domain.ClusterLow),
		"L-2": eligibleAssignment("L-2", domain.ClusterLow),
		"L-3": eligibleAssignment("L-3", domain.ClusterLow),
		"L-4": {CustomerID: "L-4", Cluster: domain.ClusterLow, Eligible: false, Reason: domain.ExclusionSubBroadband},
	}

	ts, err := ComputeThresholds(records, assignments, 3)
	if err != nil {
		t.Fatalf("ComputeThresholds() error = %v", err)
	}
	low, _ := ts.ForCluster(domain.ClusterLow)
	if low.Bandwidth != 70 {
		t.Errorf("bandwidth median = %v, want 70 (excluded record leaked in)", low.Bandwidth)
	}
	if low.Revenue != 7_000_000 {
		t.Errorf("revenue median = %v, want 7000000", low.Revenue)
	}
}

func TestComputeThresholdsSmallClusterFallsBack(t *testing.T) {
	var records []*domain.CustomerRecord
	assignments := make(map[string]domain.ClusterAssignment)

	// Plenty of Mid members, only three in High.
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("M-%d", i)
		records = append(records, &domain.CustomerRecord{
			ID: id, MonthlyRevenue: float64(i) * 1_000_000, BandwidthMbps: float64(i) * 30, TenureMonths: i * 6,
		})
		assignments[id] = eligibleAssignment(id, domain.ClusterMid)
	}
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("H-%d", i)
		records = append(records, &domain.CustomerRecord{
			ID: id, MonthlyRevenue: float64(i) * 40_000_000, BandwidthMbps: float64(i) * 1000, TenureMonths: i * 12,
		})
		assignments[id] = eligibleAssignment(id, domain.ClusterHigh)
	}

	ts, err := ComputeThresholds(records, assignments, 5)
	if err != nil {
		t.Fatalf("ComputeThresholds() error = %v", err)
	}
	if !ts.IsUndefined(domain.ClusterHigh) {
		t.Error("high cluster with 3 members should be undefined at min size 5")
	}
	if _, ok := ts.PerCluster[domain.ClusterHigh]; ok {
		t.Error("undefined cluster must not carry its own medians")
	}
	if _, fallback := ts.ForCluster(domain.ClusterHigh); !fallback {
		t.Error("ForCluster(high) should report global fallback")
	}
	if ts.IsUndefined(domain.ClusterMid) {
		t.Error("mid cluster with 10 members should have defined thresholds")
	}

	// The global medians cover all 13 eligible records.
	if ts.Global.Revenue <= 0 {
		t.Errorf("global revenue median = %v, want > 0", ts.Global.Revenue)
	}
}

func TestComputeThresholdsNoEligibleRecords(t *testing.T) {
	records := []*domain.CustomerRecord{
		{ID: "X-1", MonthlyRevenue: 1_000_000, BandwidthMbps: 0.5},
	}
	assignments := map[string]domain.ClusterAssignment{
		"X-1": {CustomerID: "X-1", Cluster: domain.ClusterLow, Eligible: false, Reason: domain.ExclusionSubBroadband},
	}

	_, err := ComputeThresholds(records, assignments, 5)
	if err == nil {
		t.Fatal("ComputeThresholds() error = nil, want InsufficientDataError")
	}
	var insufficient *domain.InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("ComputeThresholds() error = %T, want *domain.InsufficientDataError", err)
	}
	if insufficient.Got != 0 {
		t.Errorf("InsufficientDataError.Got = %d, want 0", insufficient.Got)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"odd count", []float64{9, 1, 5}, 5},
		{"even count averages middles", []float64{1, 2, 3, 4}, 2.5},
		{"unsorted input", []float64{100, 2, 50, 2}, 26},
		{"skew resistant", []float64{1, 1, 1, 1, 1000}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := median(tt.values); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}
