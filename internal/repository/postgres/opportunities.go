package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/reporting"
)

// OpportunityRepo implements reporting.OpportunityStore against PostgreSQL.
type OpportunityRepo struct{ db *sql.DB }

// NewOpportunityRepo creates a Postgres-backed opportunity repository.
func NewOpportunityRepo(db *sql.DB) *OpportunityRepo { return &OpportunityRepo{db: db} }

const opportunityColumns = `run_id, customer_id, customer_name, industry, region, category,
		       tier_group, monthly_revenue, bandwidth_mbps, tenure_months,
		       cluster, eligible, COALESCE(excluded_reason,''), sales_quadrant, trust_quadrant,
		       ltv, upsell_score, cross_sell_score, value_12m, confidence,
		       priority, tenure_strategy, offers, upsell_potential,
		       cross_sell_potential, potential_value, rank, created_at`

func (r *OpportunityRepo) Get(ctx context.Context, runID, customerID string) (*domain.OpportunityRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+opportunityColumns+`
		FROM cvo_opportunities
		WHERE run_id = $1 AND customer_id = $2
	`, runID, customerID)
	o, err := scanOpportunity(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get opportunity: %w", err)
	}
	return o, nil
}

// List pages through a run's rows in rank order, applying any filters set
// on f. The returned total counts all rows matching the filters, not just
// the page.
func (r *OpportunityRepo) List(ctx context.Context, runID string, f reporting.ListFilter) ([]domain.OpportunityRecord, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := "WHERE run_id = $1"
	args := []interface{}{runID}
	idx := 2

	add := func(clause string, val interface{}) {
		where += fmt.Sprintf(" AND "+clause, idx)
		args = append(args, val)
		idx++
	}
	if f.Cluster != "" {
		add("cluster = $%d", f.Cluster)
	}
	if f.SalesQuadrant != "" {
		add("sales_quadrant = $%d", f.SalesQuadrant)
	}
	if f.TrustQuadrant != "" {
		add("trust_quadrant = $%d", f.TrustQuadrant)
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if f.TenureStrategy != "" {
		add("tenure_strategy = $%d", f.TenureStrategy)
	}
	if f.Industry != "" {
		add("industry = $%d", f.Industry)
	}
	if f.TierGroup != "" {
		add("tier_group = $%d", f.TierGroup)
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND (customer_name ILIKE $%d OR customer_id ILIKE $%d)", idx, idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cvo_opportunities "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count opportunities: %w", err)
	}

	q := "SELECT " + opportunityColumns + " FROM cvo_opportunities " + where +
		fmt.Sprintf(" ORDER BY rank ASC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	out, err := r.queryOpportunities(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// TopUpsell returns a run's best upsell rows in rank order. Excluded
// customers and zero scores never appear here.
func (r *OpportunityRepo) TopUpsell(ctx context.Context, runID string, limit int) ([]domain.OpportunityRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.queryOpportunities(ctx, `
		SELECT `+opportunityColumns+`
		FROM cvo_opportunities
		WHERE run_id = $1 AND eligible AND upsell_score > 0
		ORDER BY rank ASC
		LIMIT $2
	`, runID, limit)
}

// TopCrossSell returns a run's best cross-sell rows. Excluded customers
// stay in: cross-sell is the only play left for them.
func (r *OpportunityRepo) TopCrossSell(ctx context.Context, runID string, limit int) ([]domain.OpportunityRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.queryOpportunities(ctx, `
		SELECT `+opportunityColumns+`
		FROM cvo_opportunities
		WHERE run_id = $1 AND cross_sell_score > 0
		ORDER BY cross_sell_score DESC, cross_sell_potential DESC, customer_id ASC
		LIMIT $2
	`, runID, limit)
}

// Distribution groups a run's rows by one of a fixed set of dimensions
// and returns the buckets largest first.
func (r *OpportunityRepo) Distribution(ctx context.Context, runID, dimension string) ([]reporting.Facet, error) {
	var col string
	switch dimension {
	case "industry":
		col = "industry"
	case "tier":
		col = "tier_group"
	case "cluster":
		col = "cluster"
	case "sales_quadrant":
		col = "sales_quadrant"
	case "trust_quadrant":
		col = "trust_quadrant"
	case "priority":
		col = "priority"
	default:
		return nil, fmt.Errorf("unknown dimension %q", dimension)
	}

	q := fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM cvo_opportunities
		WHERE run_id = $1 AND %s <> ''
		GROUP BY %s
		ORDER BY COUNT(*) DESC, %s ASC
	`, col, col, col, col)

	rows, err := r.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("distribution %s: %w", dimension, err)
	}
	defer rows.Close()

	var out []reporting.Facet
	for rows.Next() {
		var f reporting.Facet
		if err := rows.Scan(&f.Value, &f.Count); err != nil {
			return nil, fmt.Errorf("scan facet: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// TopOffers counts how often each product shows up in a run's ranked
// offers, most recommended first.
func (r *OpportunityRepo) TopOffers(ctx context.Context, runID string, limit int) ([]reporting.Facet, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT o->>'product_name', COUNT(*)
		FROM cvo_opportunities, jsonb_array_elements(offers) AS o
		WHERE run_id = $1
		GROUP BY o->>'product_name'
		ORDER BY COUNT(*) DESC, o->>'product_name' ASC
		LIMIT $2
	`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("top offers: %w", err)
	}
	defer rows.Close()

	var out []reporting.Facet
	for rows.Next() {
		var f reporting.Facet
		if err := rows.Scan(&f.Value, &f.Count); err != nil {
			return nil, fmt.Errorf("scan offer count: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *OpportunityRepo) queryOpportunities(ctx context.Context, q string, args ...interface{}) ([]domain.OpportunityRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query opportunities: %w", err)
	}
	defer rows.Close()

	var out []domain.OpportunityRecord
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func scanOpportunity(row interface{ Scan(dest ...interface{}) error }) (*domain.OpportunityRecord, error) {
	o := &domain.OpportunityRecord{}
	var offers []byte
	if err := row.Scan(
		&o.RunID, &o.CustomerID, &o.CustomerName, &o.Industry, &o.Region, &o.Category,
		&o.TierGroup, &o.MonthlyRevenue, &o.BandwidthMbps, &o.TenureMonths,
		&o.Cluster, &o.Eligible, &o.ExcludedReason, &o.SalesQuadrant, &o.TrustQuadrant,
		&o.LTV, &o.UpsellScore, &o.CrossSellScore, &o.Value12M, &o.Confidence,
		&o.Priority, &o.TenureStrategy, &offers, &o.UpsellPotential,
		&o.CrossSellPotential, &o.PotentialValue, &o.Rank, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(offers) > 0 {
		if err := json.Unmarshal(offers, &o.Offers); err != nil {
			return nil, fmt.Errorf("decode offers: %w", err)
		}
	}
	return o, nil
}
