package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/ingest"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/notify"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/pipeline"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/pkg/logger"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/pkg/runlock"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/repository/postgres"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/scoring"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/storage"

	_ "github.com/lib/pq"
)

// runLockTTL bounds how long a crashed run can block the next one.
const runLockTTL = 30 * time.Minute

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	inputPath := flag.String("input", "", "override ingest path (local CSV)")
	source := flag.String("source", "", "override ingest source: local, s3 or snowflake")
	output := flag.String("output", "", "write snapshots to this local directory instead of the configured backend")
	dryRun := flag.Bool("dry-run", false, "run the pipeline but skip Postgres, snapshots and email")
	flag.Parse()

	log.Println("Starting CVO pipeline run...")

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *inputPath != "" {
		cfg.Ingest.Path = *inputPath
		if *source == "" {
			cfg.Ingest.Source = config.SourceLocal
		}
	}
	if *source != "" {
		cfg.Ingest.Source = *source
	}
	if *output != "" {
		cfg.Storage.Type = config.StorageLocal
		cfg.Storage.LocalPath = *output
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Interrupted, cancelling run...")
		cancel()
	}()
	catalog, err := scoring.LoadCatalog(cfg.Scoring.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load product catalog: %v", err)
	}

	var db *sql.DB
	if cfg.Database.URL != "" && !*dryRun {
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			pingCancel()
			log.Fatalf("Failed to ping database: %v", err)
		}
		pingCancel()
		log.Println("Connected to database")
	} else {
		log.Println("No database configured, results will not be persisted")
	}

	redisClient := connectRedis(ctx, cfg.Reporting.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Only one run at a time. Without Redis or Postgres there is nothing
	// to coordinate through, so a purely local run skips the lock.
	if redisClient != nil || db != nil {
		lock := runlock.New(redisClient, db, runLockTTL)
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			log.Fatalf("Failed to acquire run lock: %v", err)
		}
		if !acquired {
			log.Fatal("Another pipeline run is already in progress")
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logger.Warn("run lock release failed", "error", err)
			}
		}()
	}

	src, err := ingest.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize ingest source: %v", err)
	}
	reader, sourceFile, err := src.Open(ctx)
	if err != nil {
		var unavailable *domain.DownstreamUnavailableError
		if errors.As(err, &unavailable) {
			log.Fatalf("Extract source unavailable: %v", err)
		}
		log.Fatalf("Failed to open extract: %v", err)
	}
	defer reader.Close()

	result, err := pipeline.New(cfg, catalog).Run(ctx, reader, sourceFile)
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}
	summary := &result.Summary

	if db != nil {
		if err := postgres.NewRunRepo(db).Save(ctx, summary, result.Ranking.Combined); err != nil {
			log.Fatalf("Failed to persist run %s: %v", summary.RunID, err)
		}
		log.Printf("Persisted run %s (%d opportunities)", summary.RunID, len(result.Ranking.Combined))
	}

	if !*dryRun {
		archive, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			logger.Error("archive init failed, skipping snapshot", "error", err)
		} else if err := archive.SaveSnapshot(ctx, summary, result); err != nil {
			logger.Error("snapshot save failed", "run_id", summary.RunID, "error", err)
		}

		notifier, err := notify.New(ctx, cfg.Notify)
		if err != nil {
			logger.Error("notifier init failed, skipping email", "error", err)
		} else if err := notifier.SendRunSummary(ctx, summary); err != nil {
			logger.Error("run summary email failed", "run_id", summary.RunID, "error", err)
		}
	}

	for _, w := range summary.Warnings {
		log.Printf("Warning: %s", w)
	}
	log.Printf("Run %s complete: %d rows in, %d scored, %d excluded, potential %s, took %s",
		summary.RunID, summary.TotalRows, summary.ScoredRows, summary.ExcludedRows,
		notify.FormatRupiah(summary.TotalPotential()), summary.Duration().Round(time.Millisecond))
}

// connectRedis probes the reporting Redis. A missing or unreachable Redis is
// not fatal for a batch run; the lock falls back to Postgres advisory locks.
func connectRedis(ctx context.Context, redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Redis unavailable (%v), falling back to Postgres advisory locks", err)
		client.Close()
		return nil
	}
	return client
}
