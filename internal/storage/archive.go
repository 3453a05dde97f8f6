// Package storage archives pipeline run artifacts. The local backend
// writes JSON snapshots under a data directory; the aws backend mirrors
// them to S3 and registers run history in DynamoDB.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Archive persists run snapshots and the run history that goes with them.
type Archive struct {
	cfg config.StorageConfig

	// AWS backend (nil for local)
	aws *AWSArchive
}

// New creates an archive for the configured backend.
func New(ctx context.Context, cfg config.StorageConfig) (*Archive, error) {
	a := &Archive{cfg: cfg}

	switch cfg.Type {
	case config.StorageAWS:
		awsArchive, err := NewAWSArchive(ctx, cfg.DynamoDBTable, cfg.S3Bucket, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing aws archive: %w", err)
		}
		a.aws = awsArchive
	case config.StorageLocal:
		if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	default:
		return nil, &domain.ConfigurationError{
			Field:  "storage.type",
			Reason: fmt.Sprintf("unknown backend %q", cfg.Type),
		}
	}

	return a, nil
}

// SaveSnapshot writes one run's full output keyed by run id, mirrors it
// to latest.json, and registers the summary in the run history.
func (a *Archive) SaveSnapshot(ctx context.Context, summary *domain.RunSummary, payload interface{}) error {
	if a.aws != nil {
		key := fmt.Sprintf("runs/%s.json", summary.RunID)
		if err := a.aws.SaveToS3(ctx, key, payload); err != nil {
			return err
		}
		if err := a.aws.SaveToS3(ctx, "runs/latest.json", payload); err != nil {
			return err
		}
		return a.aws.RegisterRun(ctx, summary)
	}

	if err := a.saveToFile("runs", summary.RunID, payload); err != nil {
		return err
	}
	if err := a.saveToFile("runs", "latest", payload); err != nil {
		return err
	}
	return a.saveToFile("history", summary.RunID, summary)
}

// LoadSnapshot reads one run's output back into target.
func (a *Archive) LoadSnapshot(ctx context.Context, runID string, target interface{}) error {
	if a.aws != nil {
		return a.aws.GetFromS3(ctx, fmt.Sprintf("runs/%s.json", runID), target)
	}
	return a.loadFromFile("runs", runID, target)
}

// LoadLatest reads the newest snapshot into target.
func (a *Archive) LoadLatest(ctx context.Context, target interface{}) error {
	return a.LoadSnapshot(ctx, "latest", target)
}

// RunHistory lists archived runs started inside the window, newest
// first. Zero bounds are open ends.
func (a *Archive) RunHistory(ctx context.Context, from, to time.Time) ([]domain.RunSummary, error) {
	if a.aws != nil {
		return a.aws.RunsBetween(ctx, from, to)
	}
	return a.localHistory(from, to)
}

func (a *Archive) localHistory(from, to time.Time) ([]domain.RunSummary, error) {
	dir := filepath.Join(a.cfg.LocalPath, "history")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	var out []domain.RunSummary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		var summary domain.RunSummary
		if err := json.Unmarshal(data, &summary); err != nil {
			continue
		}
		if !from.IsZero() && summary.StartedAt.Before(from) {
			continue
		}
		if !to.IsZero() && summary.StartedAt.After(to) {
			continue
		}
		out = append(out, summary)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (a *Archive) saveToFile(category, key string, data interface{}) error {
	dir := filepath.Join(a.cfg.LocalPath, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Sanitize key for filename
	safeKey := filepath.Base(key)
	path := filepath.Join(dir, safeKey+".json")

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (a *Archive) loadFromFile(category, key string, data interface{}) error {
	safeKey := filepath.Base(key)
	path := filepath.Join(a.cfg.LocalPath, category, safeKey+".json")

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(data)
}
