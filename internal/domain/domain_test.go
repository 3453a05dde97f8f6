package domain

import "testing"

func TestLTV(t *testing.T) {
	tests := []struct {
		name       string
		monthly    float64
		months     int
		floorYears float64
		want       float64
	}{
		{"five year tenure", 10_000_000, 60, 1.0, 10_000_000 * 12 * 5},
		{"six month tenure floored to one year", 2_000_000, 6, 1.0, 2_000_000 * 12 * 1},
		{"zero tenure floored", 5_000_000, 0, 1.0, 5_000_000 * 12 * 1},
		{"no floor", 5_000_000, 6, 0, 5_000_000 * 12 * 0.5},
		{"zero revenue", 0, 120, 1.0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CustomerRecord{MonthlyRevenue: tt.monthly, TenureMonths: tt.months}
			if got := c.LTV(tt.floorYears); got != tt.want {
				t.Errorf("LTV() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStrategyForTenure(t *testing.T) {
	tests := []struct {
		months int
		want   TenureStrategy
	}{
		{0, TenureRenewalRisk},
		{-1, TenureRenewalRisk},
		{1, TenureGrowth},
		{23, TenureGrowth},
		{24, TenureLoyalty},
		{120, TenureLoyalty},
	}
	for _, tt := range tests {
		if got := StrategyForTenure(tt.months); got != tt.want {
			t.Errorf("StrategyForTenure(%d) = %v, want %v", tt.months, got, tt.want)
		}
	}
}

func TestThresholdSetForCluster(t *testing.T) {
	ts := ThresholdSet{
		PerCluster: map[Cluster]AxisMedians{
			ClusterHigh: {Revenue: 20_000_000, Bandwidth: 500, TenureMonths: 36},
		},
		Global:    AxisMedians{Revenue: 5_000_000, Bandwidth: 100, TenureMonths: 24},
		Undefined: []Cluster{ClusterLow},
	}

	m, fallback := ts.ForCluster(ClusterHigh)
	if fallback {
		t.Error("ForCluster(high) used global fallback, want per-cluster medians")
	}
	if m.Revenue != 20_000_000 {
		t.Errorf("ForCluster(high).Revenue = %v, want 20000000", m.Revenue)
	}

	m, fallback = ts.ForCluster(ClusterLow)
	if !fallback {
		t.Error("ForCluster(low) should fall back to global medians")
	}
	if m.Revenue != 5_000_000 {
		t.Errorf("ForCluster(low).Revenue = %v, want global 5000000", m.Revenue)
	}
	if !ts.IsUndefined(ClusterLow) {
		t.Error("IsUndefined(low) = false, want true")
	}
	if ts.IsUndefined(ClusterHigh) {
		t.Error("IsUndefined(high) = true, want false")
	}
}

func TestQuadrantStrategies(t *testing.T) {
	for _, q := range []SalesQuadrant{SalesStarClient, SalesRiskArea, SalesSniperZone, SalesIncubator} {
		s := q.StrategyFor()
		if s.Strategy == "" || s.Action == "" || s.Color == "" {
			t.Errorf("sales quadrant %s has incomplete strategy: %+v", q, s)
		}
	}
	for _, q := range []TrustQuadrant{TrustChampion, TrustHighPotential, TrustLoyalValue, TrustNewbie} {
		s := q.StrategyFor()
		if s.Strategy == "" || s.Action == "" || s.Color == "" {
			t.Errorf("trust quadrant %s has incomplete strategy: %+v", q, s)
		}
	}
	if got := SalesSniperZone.StrategyFor().Strategy; got != "UPSELL" {
		t.Errorf("sniper zone strategy = %q, want UPSELL", got)
	}
	if got := TrustChampion.StrategyFor().Strategy; got != "ADVOCACY" {
		t.Errorf("champion strategy = %q, want ADVOCACY", got)
	}
}

func TestExclusionReasonDescription(t *testing.T) {
	if d := ExclusionSubBroadband.Description(); d == "" {
		t.Error("ExclusionSubBroadband.Description() is empty")
	}
	if d := ExclusionCapacityCeiling.Description(); d == "" {
		t.Error("ExclusionCapacityCeiling.Description() is empty")
	}
}
