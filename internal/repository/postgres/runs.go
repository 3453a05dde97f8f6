// Package postgres persists pipeline runs and their scored opportunity
// rows, and serves the filtered queries behind the reporting API.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// RunRepo implements reporting.RunStore against PostgreSQL and writes
// new runs as they finish.
type RunRepo struct{ db *sql.DB }

// NewRunRepo creates a Postgres-backed run repository.
func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{db: db} }

// runBreakdowns is the jsonb payload holding a run's per-dimension counts.
type runBreakdowns struct {
	Clusters map[domain.Cluster]int       `json:"clusters"`
	Sales    map[domain.SalesQuadrant]int `json:"sales"`
	Trust    map[domain.TrustQuadrant]int `json:"trust"`
	Priority map[domain.Priority]int      `json:"priority"`
}

// Save writes the run summary and all of its opportunity rows in one
// transaction. Opportunity rows go through COPY so a full extract lands
// in a handful of round trips instead of one per customer.
func (r *RunRepo) Save(ctx context.Context, s *domain.RunSummary, records []domain.OpportunityRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	breakdowns, err := json.Marshal(runBreakdowns{
		Clusters: s.ClusterCounts,
		Sales:    s.SalesQuadrants,
		Trust:    s.TrustQuadrants,
		Priority: s.Priorities,
	})
	if err != nil {
		return fmt.Errorf("marshal breakdowns: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cvo_runs (
			run_id, source_file, started_at, finished_at,
			total_rows, imported_rows, rejected_rows, duplicate_rows,
			excluded_rows, scored_rows, breakdowns,
			upsell_value, cross_sell_value, mean_quality,
			strategy_used, config_digest, warnings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, s.RunID, s.SourceFile, s.StartedAt, s.FinishedAt,
		s.TotalRows, s.ImportedRows, s.RejectedRows, s.DuplicateRows,
		s.ExcludedRows, s.ScoredRows, breakdowns,
		s.UpsellValue, s.CrossSellValue, s.MeanQuality,
		s.StrategyUsed, s.ConfigDigest, pq.Array(s.Warnings))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(records) > 0 {
		if err := copyOpportunities(ctx, tx, records); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func copyOpportunities(ctx context.Context, tx *sql.Tx, records []domain.OpportunityRecord) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"cvo_opportunities",
		"run_id", "customer_id", "customer_name", "industry", "region", "category",
		"tier_group", "monthly_revenue", "bandwidth_mbps", "tenure_months",
		"cluster", "eligible", "excluded_reason", "sales_quadrant", "trust_quadrant",
		"ltv", "upsell_score", "cross_sell_score", "value_12m", "confidence",
		"priority", "tenure_strategy", "offers", "upsell_potential",
		"cross_sell_potential", "potential_value", "rank", "created_at",
	))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for i := range records {
		o := &records[i]
		offers, err := json.Marshal(o.Offers)
		if err != nil {
			return fmt.Errorf("marshal offers for %s: %w", o.CustomerID, err)
		}
		_, err = stmt.ExecContext(ctx,
			o.RunID, o.CustomerID, o.CustomerName, o.Industry, o.Region, o.Category,
			o.TierGroup, o.MonthlyRevenue, o.BandwidthMbps, o.TenureMonths,
			o.Cluster, o.Eligible, o.ExcludedReason, o.SalesQuadrant, o.TrustQuadrant,
			o.LTV, o.UpsellScore, o.CrossSellScore, o.Value12M, o.Confidence,
			o.Priority, o.TenureStrategy, string(offers), o.UpsellPotential,
			o.CrossSellPotential, o.PotentialValue, o.Rank, o.CreatedAt)
		if err != nil {
			return fmt.Errorf("copy opportunity %s: %w", o.CustomerID, err)
		}
	}

	// Flush the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}
	return nil
}

// Get returns one run with its full breakdowns.
func (r *RunRepo) Get(ctx context.Context, runID string) (*domain.RunSummary, error) {
	s := &domain.RunSummary{}
	var breakdowns []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT run_id, source_file, started_at, finished_at,
		       total_rows, imported_rows, rejected_rows, duplicate_rows,
		       excluded_rows, scored_rows, breakdowns,
		       upsell_value, cross_sell_value, mean_quality,
		       strategy_used, config_digest, warnings
		FROM cvo_runs
		WHERE run_id = $1
	`, runID).Scan(
		&s.RunID, &s.SourceFile, &s.StartedAt, &s.FinishedAt,
		&s.TotalRows, &s.ImportedRows, &s.RejectedRows, &s.DuplicateRows,
		&s.ExcludedRows, &s.ScoredRows, &breakdowns,
		&s.UpsellValue, &s.CrossSellValue, &s.MeanQuality,
		&s.StrategyUsed, &s.ConfigDigest, pq.Array(&s.Warnings),
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if len(breakdowns) > 0 {
		var b runBreakdowns
		if err := json.Unmarshal(breakdowns, &b); err != nil {
			return nil, fmt.Errorf("decode breakdowns: %w", err)
		}
		s.ClusterCounts = b.Clusters
		s.SalesQuadrants = b.Sales
		s.TrustQuadrants = b.Trust
		s.Priorities = b.Priority
	}
	return s, nil
}

// Latest returns the most recent run by start time.
func (r *RunRepo) Latest(ctx context.Context) (*domain.RunSummary, error) {
	var runID string
	err := r.db.QueryRowContext(ctx,
		`SELECT run_id FROM cvo_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r.Get(ctx, runID)
}

// List returns recent runs, newest first, without breakdowns or warnings.
func (r *RunRepo) List(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, source_file, started_at, finished_at,
		       total_rows, imported_rows, rejected_rows, duplicate_rows,
		       excluded_rows, scored_rows, upsell_value, cross_sell_value,
		       mean_quality, strategy_used, config_digest
		FROM cvo_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var s domain.RunSummary
		if err := rows.Scan(
			&s.RunID, &s.SourceFile, &s.StartedAt, &s.FinishedAt,
			&s.TotalRows, &s.ImportedRows, &s.RejectedRows, &s.DuplicateRows,
			&s.ExcludedRows, &s.ScoredRows, &s.UpsellValue, &s.CrossSellValue,
			&s.MeanQuality, &s.StrategyUsed, &s.ConfigDigest,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a run and its opportunity rows.
func (r *RunRepo) Delete(ctx context.Context, runID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cvo_opportunities WHERE run_id = $1`, runID,
	); err != nil {
		return fmt.Errorf("delete opportunities: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM cvo_runs WHERE run_id = $1`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}
