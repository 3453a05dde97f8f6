// Package ingest opens customer extracts from their configured source.
// Every source yields one delimited byte stream; the normalizer neither
// knows nor cares where an extract came from.
package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Source opens one extract for reading. The returned name identifies
// the extract in run summaries and logs.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, string, error)
}

// New builds the Source selected by ingest.source.
func New(ctx context.Context, cfg *config.Config) (Source, error) {
	switch cfg.Ingest.Source {
	case config.SourceLocal:
		return NewLocalSource(cfg.Ingest.Path), nil
	case config.SourceS3:
		return NewS3Source(ctx, cfg.Ingest)
	case config.SourceSnowflake:
		return NewSnowflakeSource(cfg.Snowflake)
	default:
		return nil, &domain.ConfigurationError{
			Field:  "ingest.source",
			Reason: fmt.Sprintf("unknown source %q", cfg.Ingest.Source),
		}
	}
}
