package domain

import "time"

// BandwidthKind describes what the bandwidth column actually encoded.
// IP-address counts ("5 IP") are not bandwidth and must never be compared
// against Mbps values.
type BandwidthKind string

const (
	BandwidthConnectivity BandwidthKind = "connectivity"
	BandwidthIPOnly       BandwidthKind = "ip_only"
	BandwidthNone         BandwidthKind = "none"
	BandwidthUnknown      BandwidthKind = "unknown"
)

// CustomerRecord is the canonical post-normalization customer row.
// All numeric fields are non-negative; bandwidth is always Mbps and tenure
// is always months. Rows that could not be normalized to this shape are
// dropped by the normalizer and counted in the run summary, so downstream
// code never sees a partially-populated record.
type CustomerRecord struct {
	ID             string        `json:"id" db:"customer_id"`
	Name           string        `json:"name" db:"name"`
	Industry       string        `json:"industry" db:"industry"`
	Region         string        `json:"region" db:"region"`
	Category       string        `json:"category" db:"category"`
	TierGroup      string        `json:"tier_group" db:"tier_group"`
	ServiceName    string        `json:"service_name" db:"service_name"`
	Products       []string      `json:"products" db:"products"`
	MonthlyRevenue float64       `json:"monthly_revenue" db:"monthly_revenue"`
	PrevRevenue    float64       `json:"prev_revenue" db:"prev_revenue"`
	BandwidthMbps  float64       `json:"bandwidth_mbps" db:"bandwidth_mbps"`
	BandwidthKind  BandwidthKind `json:"bandwidth_kind" db:"bandwidth_kind"`
	TenureMonths   int           `json:"tenure_months" db:"tenure_months"`
	Status         string        `json:"status" db:"status"`
	Active         bool          `json:"active" db:"active"`
	QualityScore   float64       `json:"quality_score" db:"quality_score"`
	SourceFile     string        `json:"source_file,omitempty" db:"source_file"`
	ImportedAt     time.Time     `json:"imported_at" db:"imported_at"`
}

// TenureYears converts the canonical month count to fractional years.
func (c CustomerRecord) TenureYears() float64 {
	return float64(c.TenureMonths) / 12.0
}

// LTV estimates lifetime value as annualized revenue times tenure in years,
// floored at floorYears so brand-new contracts don't collapse to zero.
func (c CustomerRecord) LTV(floorYears float64) float64 {
	years := c.TenureYears()
	if years < floorYears {
		years = floorYears
	}
	return c.MonthlyRevenue * 12 * years
}

// RevenueGrowth returns the fractional revenue change against the previous
// billing period, or 0 when no previous revenue is known.
func (c CustomerRecord) RevenueGrowth() float64 {
	if c.PrevRevenue <= 0 {
		return 0
	}
	return (c.MonthlyRevenue - c.PrevRevenue) / c.PrevRevenue
}
