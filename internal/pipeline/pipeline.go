// Package pipeline runs the batch flow end to end: normalize the
// extract, assign clusters, compute thresholds, classify and score
// every customer, then rank the scored set into report lists.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/datanorm"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/pkg/logger"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/rank"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/scoring"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/segmentation"
)

// Result bundles everything one batch run produces. The scored records
// live in Ranking.Combined, in rank order.
type Result struct {
	Summary    domain.RunSummary
	Ranking    rank.Ranking
	Thresholds domain.ThresholdSet
}

// Pipeline wires the stages together. The clock and run-id source are
// injectable so that two runs over identical input can produce
// byte-identical output.
type Pipeline struct {
	cfg     *config.Config
	catalog *scoring.Catalog
	now     func() time.Time
	runID   func() string
}

type Option func(*Pipeline)

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRunIDFunc replaces the run-id generator.
func WithRunIDFunc(fn func() string) Option {
	return func(p *Pipeline) { p.runID = fn }
}

func New(cfg *config.Config, catalog *scoring.Catalog, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		catalog: catalog,
		now:     time.Now,
		runID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one batch over the extract stream. Stages are barriers:
// clustering sees every normalized record, thresholds see every
// assignment, scoring sees the full threshold set. Per-row problems are
// counted and carried in the summary; Run fails only on an unusable
// extract, an over-limit rejection rate, bad configuration, or a dataset
// with no eligible records at all.
func (p *Pipeline) Run(ctx context.Context, src io.Reader, sourceFile string) (*Result, error) {
	if timeout := p.cfg.Pipeline.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	started := p.now()
	runID := p.runID()
	logger.Info("pipeline run started", "run_id", runID, "source", sourceFile)

	norm, err := datanorm.NewReader(0).Read(src, sourceFile)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", sourceFile, err)
	}
	logger.Info("normalize finished",
		"run_id", runID,
		"total_rows", norm.TotalRows,
		"imported", norm.Imported,
		"rejected", norm.Rejected,
		"duplicates", norm.Duplicates,
		"inactive", norm.Inactive)

	if norm.TotalRows > 0 {
		rate := float64(norm.Rejected) / float64(norm.TotalRows)
		if rate > p.cfg.Pipeline.MaxRejectRate {
			return nil, &domain.DataQualityError{
				SourceFile:   sourceFile,
				TotalRows:    norm.TotalRows,
				RejectedRows: norm.Rejected,
				Samples:      issueSamples(norm.Issues),
			}
		}
	}
	if len(norm.Records) == 0 {
		return nil, &domain.InsufficientDataError{Stage: "normalization", Need: 1, Got: 0}
	}

	clusterCfg := p.cfg.Clustering
	if clusterCfg.DataDriven {
		lowMax, midMax := segmentation.DeriveCutoffs(norm.Records, clusterCfg)
		logger.Info("data-driven cluster cutoffs",
			"run_id", runID,
			"low_max_mbps", lowMax,
			"mid_max_mbps", midMax,
			"configured_low_max_mbps", clusterCfg.LowMaxMbps,
			"configured_mid_max_mbps", clusterCfg.MidMaxMbps)
		clusterCfg.LowMaxMbps = lowMax
		clusterCfg.MidMaxMbps = midMax
	}

	assignments := segmentation.NewAssigner(clusterCfg).AssignAll(norm.Records)
	byCustomer := segmentation.IndexAssignments(assignments)

	thresholds, err := segmentation.ComputeThresholds(norm.Records, byCustomer, clusterCfg.MinClusterSize)
	if err != nil {
		return nil, fmt.Errorf("compute thresholds: %w", err)
	}
	warnings := thresholdWarnings(thresholds, norm.Records, byCustomer, clusterCfg.MinClusterSize)
	for _, w := range warnings {
		logger.Warn(w, "run_id", runID)
	}

	classifier := segmentation.NewClassifier(thresholds, clusterCfg)

	strategy, err := scoring.New(p.cfg.Scoring, p.catalog, scoring.BuildCoOccurrence(portfolios(norm.Records)))
	if err != nil {
		return nil, err
	}

	records, err := p.scoreAll(ctx, norm.Records, byCustomer, classifier, strategy, runID, started)
	if err != nil {
		return nil, err
	}

	ranking := rank.NewRanker(p.cfg.ROI, p.cfg.Pipeline.TopN).Rank(records)
	summary := p.buildSummary(runID, sourceFile, started, norm, assignments, ranking, strategy.Name(), warnings)

	logger.Info("pipeline run finished",
		"run_id", runID,
		"scored", summary.ScoredRows,
		"excluded", summary.ExcludedRows,
		"total_potential", ranking.Rollups.TotalPotential,
		"duration_ms", summary.Duration().Milliseconds())

	return &Result{Summary: summary, Ranking: ranking, Thresholds: thresholds}, nil
}

// scoreAll classifies and scores every record over a bounded worker
// pool. Each worker writes only its own output index, so the result
// order matches the input order regardless of scheduling.
func (p *Pipeline) scoreAll(
	ctx context.Context,
	records []*domain.CustomerRecord,
	assignments map[string]domain.ClusterAssignment,
	classifier *segmentation.Classifier,
	strategy scoring.Strategy,
	runID string,
	stamp time.Time,
) ([]domain.OpportunityRecord, error) {
	out := make([]domain.OpportunityRecord, len(records))

	workers := p.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(records) {
		workers = len(records)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				rec := records[idx]
				assignment := assignments[rec.ID]
				label := classifier.Classify(rec, assignment)
				score := strategy.Score(rec, assignment, label)
				out[idx] = buildOpportunity(runID, stamp, rec, assignment, label, score)
			}
		}()
	}

feed:
	for i := range records {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoring interrupted: %w", err)
	}
	return out, nil
}

func buildOpportunity(
	runID string,
	stamp time.Time,
	rec *domain.CustomerRecord,
	assignment domain.ClusterAssignment,
	label domain.QuadrantLabel,
	score domain.PropensityScore,
) domain.OpportunityRecord {
	o := domain.OpportunityRecord{
		RunID:          runID,
		CustomerID:     rec.ID,
		CustomerName:   rec.Name,
		Industry:       rec.Industry,
		Region:         rec.Region,
		Category:       rec.Category,
		TierGroup:      rec.TierGroup,
		MonthlyRevenue: rec.MonthlyRevenue,
		BandwidthMbps:  rec.BandwidthMbps,
		TenureMonths:   rec.TenureMonths,
		Cluster:        assignment.Cluster,
		Eligible:       assignment.Eligible,
		SalesQuadrant:  label.Sales,
		TrustQuadrant:  label.Trust,
		LTV:            label.LTV,
		UpsellScore:    score.UpsellScore,
		CrossSellScore: score.CrossSellScore,
		Value12M:       score.Value12M,
		Confidence:     score.Confidence,
		Priority:       score.Priority,
		TenureStrategy: score.TenureStrategy,
		Offers:         score.Offers,
		CreatedAt:      stamp,
	}
	if !assignment.Eligible {
		o.ExcludedReason = assignment.Reason.Description()
	}
	return o
}

func (p *Pipeline) buildSummary(
	runID, sourceFile string,
	started time.Time,
	norm *datanorm.Result,
	assignments []domain.ClusterAssignment,
	ranking rank.Ranking,
	strategyName string,
	warnings []string,
) domain.RunSummary {
	s := domain.RunSummary{
		RunID:          runID,
		SourceFile:     sourceFile,
		StartedAt:      started,
		FinishedAt:     p.now(),
		TotalRows:      norm.TotalRows,
		ImportedRows:   norm.Imported,
		RejectedRows:   norm.Rejected,
		DuplicateRows:  norm.Duplicates,
		ScoredRows:     len(ranking.Combined),
		ClusterCounts:  make(map[domain.Cluster]int),
		SalesQuadrants: make(map[domain.SalesQuadrant]int),
		TrustQuadrants: make(map[domain.TrustQuadrant]int),
		Priorities:     make(map[domain.Priority]int),
		UpsellValue:    ranking.Rollups.UpsellPotential,
		CrossSellValue: ranking.Rollups.CrossSellPotential,
		MeanQuality:    norm.MeanQuality,
		StrategyUsed:   strategyName,
		ConfigDigest:   configDigest(p.cfg),
		Warnings:       warnings,
	}
	for _, a := range assignments {
		s.ClusterCounts[a.Cluster]++
		if !a.Eligible {
			s.ExcludedRows++
		}
	}
	for _, rec := range ranking.Combined {
		s.SalesQuadrants[rec.SalesQuadrant]++
		s.TrustQuadrants[rec.TrustQuadrant]++
		s.Priorities[rec.Priority]++
	}
	return s
}

// thresholdWarnings describes every cluster that fell back to global
// medians, with its eligible member count.
func thresholdWarnings(
	thresholds domain.ThresholdSet,
	records []*domain.CustomerRecord,
	assignments map[string]domain.ClusterAssignment,
	minSize int,
) []string {
	if len(thresholds.Undefined) == 0 {
		return nil
	}
	eligible := make(map[domain.Cluster]int)
	for _, rec := range records {
		if a, ok := assignments[rec.ID]; ok && a.Eligible {
			eligible[a.Cluster]++
		}
	}
	warnings := make([]string, 0, len(thresholds.Undefined))
	for _, c := range thresholds.Undefined {
		warnings = append(warnings, fmt.Sprintf(
			"cluster %s has %d eligible members, fewer than %d: sales quadrants use global medians",
			c, eligible[c], minSize))
	}
	return warnings
}

func portfolios(records []*domain.CustomerRecord) [][]string {
	out := make([][]string, 0, len(records))
	for _, rec := range records {
		if len(rec.Products) > 0 {
			out = append(out, rec.Products)
		}
	}
	return out
}

func issueSamples(issues []datanorm.RowIssue) []string {
	const max = 5
	out := make([]string, 0, max)
	for _, issue := range issues {
		if len(out) >= max {
			break
		}
		out = append(out, fmt.Sprintf("row %d: %s", issue.Row, issue.Reason))
	}
	return out
}

// configDigest fingerprints the effective configuration so a stored run
// can be traced back to the exact settings that produced it.
func configDigest(cfg *config.Config) string {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
