package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/api"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/config"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/pkg/logger"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/reporting"
	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/repository/postgres"

	_ "github.com/lib/pq"
)

func main() {
	log.Println("Starting CVO dashboard API...")

	configPath := os.Getenv("CVO_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	if err := checkPortAvailable(addr); err != nil {
		log.Fatalf("Port check failed: %v", err)
	}

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", dsnWithTimeouts(cfg.Database.URL))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	err = db.PingContext(pingCtx)
	pingCancel()
	if err != nil {
		log.Fatalf("Failed to ping database at %s: %v", extractHost(cfg.Database.URL), err)
	}
	log.Printf("Connected to database at %s", extractHost(cfg.Database.URL))

	redisClient := connectRedis(cfg.Reporting.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	svc := reporting.New(
		postgres.NewRunRepo(db),
		postgres.NewOpportunityRepo(db),
		redisClient,
		cfg.Reporting,
	)

	server := api.NewServer(api.NewHandlers(svc), api.NewHealthChecker(db, redisClient))

	go func() {
		log.Printf("Dashboard API listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
	log.Println("Shutting down dashboard API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// checkPortAvailable probes the listen address before the long-lived
// dependencies come up, so a port conflict fails fast with a clear error.
func checkPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is not available: %w", addr, err)
	}
	return ln.Close()
}

// dsnWithTimeouts adds a connect timeout and statement timeouts to the DSN
// unless the operator already set them. Reporting queries should never hold
// a connection for minutes.
func dsnWithTimeouts(dsn string) string {
	if strings.Contains(dsn, "connect_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "connect_timeout=5&options=" +
		url.QueryEscape("-c statement_timeout=30000 -c idle_in_transaction_session_timeout=60000")
}

// extractHost pulls host:port out of a Postgres URL for log lines, keeping
// credentials out of the logs.
func extractHost(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "database"
	}
	return u.Host
}

func connectRedis(redisURL string) *redis.Client {
	if redisURL == "" {
		log.Println("No Redis configured, reporting cache disabled")
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Redis unavailable (%v), reporting cache disabled", err)
		client.Close()
		return nil
	}
	log.Println("Connected to Redis")
	return client
}
