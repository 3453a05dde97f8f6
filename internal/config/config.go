package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Ramo2theSky/Customer-Value-Optimizer-ML/internal/domain"
)

// Exclusion scope values for ClusteringConfig.ExclusionScope.
const (
	ExclusionScopeSalesOnly   = "sales_matrix_only"
	ExclusionScopeAllMatrices = "all_matrices"
)

// Scoring strategy values for ScoringConfig.Strategy.
const (
	StrategyWeighted     = "weighted"
	StrategyTrainedModel = "trained_model"
)

// Extract source values for IngestConfig.Source.
const (
	SourceLocal     = "local"
	SourceS3        = "s3"
	SourceSnowflake = "snowflake"
)

// Artifact storage backends for StorageConfig.Type.
const (
	StorageLocal = "local"
	StorageAWS   = "aws"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	ROI        ROIConfig        `yaml:"roi"`
	Reporting  ReportingConfig  `yaml:"reporting"`
	Storage    StorageConfig    `yaml:"storage"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Snowflake  SnowflakeConfig  `yaml:"snowflake"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL                string `yaml:"url"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMin int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the connection lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMin) * time.Minute
}

// PipelineConfig holds batch run settings
type PipelineConfig struct {
	Workers        int     `yaml:"workers"`
	TimeoutMinutes int     `yaml:"timeout_minutes"`
	MaxRejectRate  float64 `yaml:"max_reject_rate"`
	TopN           int     `yaml:"top_n"`
}

// Timeout returns the overall pipeline deadline as a duration
func (c PipelineConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// ClusteringConfig holds cluster cutoffs, exclusion thresholds and the
// threshold-engine settings
type ClusteringConfig struct {
	LowMaxMbps            float64 `yaml:"low_max_mbps"`
	MidMaxMbps            float64 `yaml:"mid_max_mbps"`
	SubBroadbandFloorMbps float64 `yaml:"sub_broadband_floor_mbps"`
	CapacityCeilingMbps   float64 `yaml:"capacity_ceiling_mbps"`
	MinClusterSize        int     `yaml:"min_cluster_size"`
	ExclusionScope        string  `yaml:"exclusion_scope"`
	DataDriven            bool    `yaml:"data_driven"`
	LowPercentile         float64 `yaml:"low_percentile"`
	HighPercentile        float64 `yaml:"high_percentile"`
	LTVFloorYears         float64 `yaml:"ltv_floor_years"`
	TrustLTVThreshold     float64 `yaml:"trust_ltv_threshold"`
}

// ExcludeFromAllMatrices reports whether ineligible records are withheld
// from the trust matrix as well as the sales matrix.
func (c ClusteringConfig) ExcludeFromAllMatrices() bool {
	return c.ExclusionScope == ExclusionScopeAllMatrices
}

// WeightsConfig holds the eight propensity factor weights. They must sum
// to 1.0.
type WeightsConfig struct {
	TierMatch     float64 `yaml:"tier_match"`
	Category      float64 `yaml:"category"`
	BandwidthFit  float64 `yaml:"bandwidth_fit"`
	Industry      float64 `yaml:"industry"`
	CoOccurrence  float64 `yaml:"co_occurrence"`
	Regional      float64 `yaml:"regional"`
	Affordability float64 `yaml:"affordability"`
	Tenure        float64 `yaml:"tenure"`
}

// Sum returns the total of all eight weights
func (w WeightsConfig) Sum() float64 {
	return w.TierMatch + w.Category + w.BandwidthFit + w.Industry +
		w.CoOccurrence + w.Regional + w.Affordability + w.Tenure
}

// AsMap returns the weights keyed by factor name
func (w WeightsConfig) AsMap() map[domain.Factor]float64 {
	return map[domain.Factor]float64{
		domain.FactorTierMatch:     w.TierMatch,
		domain.FactorCategory:      w.Category,
		domain.FactorBandwidthFit:  w.BandwidthFit,
		domain.FactorIndustry:      w.Industry,
		domain.FactorCoOccurrence:  w.CoOccurrence,
		domain.FactorRegional:      w.Regional,
		domain.FactorAffordability: w.Affordability,
		domain.FactorTenure:        w.Tenure,
	}
}

// ScoringConfig holds propensity scoring settings
type ScoringConfig struct {
	Strategy         string        `yaml:"strategy"`
	Weights          WeightsConfig `yaml:"weights"`
	HighCutoff       float64       `yaml:"high_cutoff"`
	MediumCutoff     float64       `yaml:"medium_cutoff"`
	TopOffers        int           `yaml:"top_offers"`
	CatalogPath      string        `yaml:"catalog_path"`
	ModelPath        string        `yaml:"model_path"`
	TargetIndustries []string      `yaml:"target_industries"`
}

// ROIConfig holds potential-value rates and conversion scenarios
type ROIConfig struct {
	UpsellRate    float64          `yaml:"upsell_rate"`
	CrossSellRate float64          `yaml:"cross_sell_rate"`
	ScoreGate     float64          `yaml:"score_gate"`
	Scenarios     []ScenarioConfig `yaml:"scenarios"`
}

// ScenarioConfig is one named ROI conversion assumption
type ScenarioConfig struct {
	Name           string  `yaml:"name"`
	ConversionRate float64 `yaml:"conversion_rate"`
}

// ReportingConfig holds query-surface and cache settings
type ReportingConfig struct {
	RedisURL        string `yaml:"redis_url"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	SampleLimit     int    `yaml:"sample_limit"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

// CacheTTL returns the cache expiry as a duration
func (c ReportingConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// StorageConfig holds artifact storage configuration
type StorageConfig struct {
	Type          string `yaml:"type"`
	LocalPath     string `yaml:"local_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// IngestConfig holds customer extract source settings
type IngestConfig struct {
	Source    string `yaml:"source"` // "local", "s3" or "snowflake"
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Key     string `yaml:"s3_key"`
	S3Region  string `yaml:"s3_region"`
}

// SnowflakeConfig holds Snowflake configuration for warehouse extracts
type SnowflakeConfig struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	Table     string `yaml:"table"`
	Enabled   bool   `yaml:"enabled"`
}

// NotifyConfig holds SES run-summary email settings
type NotifyConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Region         string   `yaml:"region"`
	AccessKey      string   `yaml:"access_key"`
	SecretKey      string   `yaml:"secret_key"`
	FromEmail      string   `yaml:"from_email"`
	Recipients     []string `yaml:"recipients"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c NotifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMin == 0 {
		cfg.Database.ConnMaxLifetimeMin = 5
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 8
	}
	if cfg.Pipeline.TimeoutMinutes == 0 {
		cfg.Pipeline.TimeoutMinutes = 30
	}
	if cfg.Pipeline.MaxRejectRate == 0 {
		cfg.Pipeline.MaxRejectRate = 0.5
	}
	if cfg.Pipeline.TopN == 0 {
		cfg.Pipeline.TopN = 10
	}
	if cfg.Clustering.LowMaxMbps == 0 {
		cfg.Clustering.LowMaxMbps = 100
	}
	if cfg.Clustering.MidMaxMbps == 0 {
		cfg.Clustering.MidMaxMbps = 500
	}
	if cfg.Clustering.SubBroadbandFloorMbps == 0 {
		cfg.Clustering.SubBroadbandFloorMbps = 1
	}
	if cfg.Clustering.CapacityCeilingMbps == 0 {
		cfg.Clustering.CapacityCeilingMbps = 5000
	}
	if cfg.Clustering.MinClusterSize == 0 {
		cfg.Clustering.MinClusterSize = 5
	}
	if cfg.Clustering.ExclusionScope == "" {
		cfg.Clustering.ExclusionScope = ExclusionScopeSalesOnly
	}
	if cfg.Clustering.LowPercentile == 0 {
		cfg.Clustering.LowPercentile = 33
	}
	if cfg.Clustering.HighPercentile == 0 {
		cfg.Clustering.HighPercentile = 66
	}
	if cfg.Clustering.LTVFloorYears == 0 {
		cfg.Clustering.LTVFloorYears = 1.0
	}
	if cfg.Clustering.TrustLTVThreshold == 0 {
		cfg.Clustering.TrustLTVThreshold = 500_000_000
	}
	if cfg.Scoring.Strategy == "" {
		cfg.Scoring.Strategy = StrategyWeighted
	}
	if cfg.Scoring.Weights == (WeightsConfig{}) {
		cfg.Scoring.Weights = WeightsConfig{
			TierMatch:     0.15,
			Category:      0.15,
			BandwidthFit:  0.15,
			Industry:      0.15,
			CoOccurrence:  0.10,
			Regional:      0.05,
			Affordability: 0.15,
			Tenure:        0.10,
		}
	}
	if cfg.Scoring.HighCutoff == 0 {
		cfg.Scoring.HighCutoff = 0.7
	}
	if cfg.Scoring.MediumCutoff == 0 {
		cfg.Scoring.MediumCutoff = 0.4
	}
	if cfg.Scoring.TopOffers == 0 {
		cfg.Scoring.TopOffers = 3
	}
	if cfg.Scoring.CatalogPath == "" {
		cfg.Scoring.CatalogPath = "config/products.yaml"
	}
	if cfg.ROI.UpsellRate == 0 {
		cfg.ROI.UpsellRate = 0.30
	}
	if cfg.ROI.CrossSellRate == 0 {
		cfg.ROI.CrossSellRate = 0.25
	}
	if cfg.ROI.ScoreGate == 0 {
		cfg.ROI.ScoreGate = 0.5
	}
	if len(cfg.ROI.Scenarios) == 0 {
		cfg.ROI.Scenarios = []ScenarioConfig{
			{Name: "conservative", ConversionRate: 0.20},
			{Name: "moderate", ConversionRate: 0.30},
			{Name: "optimistic", ConversionRate: 0.40},
		}
	}
	if cfg.Reporting.CacheTTLSeconds == 0 {
		cfg.Reporting.CacheTTLSeconds = 300
	}
	if cfg.Reporting.SampleLimit == 0 {
		cfg.Reporting.SampleLimit = 5000
	}
	if cfg.Reporting.DefaultPageSize == 0 {
		cfg.Reporting.DefaultPageSize = 50
	}
	if cfg.Reporting.MaxPageSize == 0 {
		cfg.Reporting.MaxPageSize = 500
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = StorageLocal
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Ingest.Source == "" {
		cfg.Ingest.Source = SourceLocal
	}
	if cfg.Ingest.Delimiter == "" {
		cfg.Ingest.Delimiter = ","
	}
	if cfg.Snowflake.Database == "" {
		cfg.Snowflake.Database = "CVO_DATA_LAKE"
	}
	if cfg.Snowflake.Schema == "" {
		cfg.Snowflake.Schema = "CUSTOMER_EXTRACTS"
	}
	if cfg.Notify.TimeoutSeconds == 0 {
		cfg.Notify.TimeoutSeconds = 30
	}
	if cfg.Notify.Region == "" {
		cfg.Notify.Region = "ap-southeast-1"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Reporting.RedisURL = redisURL
	}
	if v := os.Getenv("CVO_INPUT"); v != "" {
		cfg.Ingest.Path = v
	}
	if v := os.Getenv("CVO_S3_BUCKET"); v != "" {
		cfg.Ingest.S3Bucket = v
	}
	if v := os.Getenv("CVO_S3_KEY"); v != "" {
		cfg.Ingest.S3Key = v
	}
	if v := os.Getenv("CVO_S3_REGION"); v != "" {
		cfg.Ingest.S3Region = v
	}
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Snowflake.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Snowflake.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Notify.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Notify.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Notify.Region = v
	}
	if v := os.Getenv("NOTIFY_RECIPIENTS"); v != "" {
		parts := strings.Split(v, ",")
		recipients := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				recipients = append(recipients, p)
			}
		}
		cfg.Notify.Recipients = recipients
	}

	return cfg, nil
}

// Validate checks the invariants the pipeline refuses to run without.
// It returns a ConfigurationError naming the offending key.
func (c *Config) Validate() error {
	if s := c.Scoring.Weights.Sum(); math.Abs(s-1.0) > 1e-9 {
		return &domain.ConfigurationError{
			Field:  "scoring.weights",
			Reason: fmt.Sprintf("factor weights sum to %.6f, want 1.0", s),
		}
	}
	for f, w := range c.Scoring.Weights.AsMap() {
		if w < 0 {
			return &domain.ConfigurationError{
				Field:  "scoring.weights." + string(f),
				Reason: fmt.Sprintf("weight %.4f is negative", w),
			}
		}
	}
	if c.Clustering.LowMaxMbps >= c.Clustering.MidMaxMbps {
		return &domain.ConfigurationError{
			Field:  "clustering.low_max_mbps",
			Reason: fmt.Sprintf("low cutoff %.1f must be below mid cutoff %.1f", c.Clustering.LowMaxMbps, c.Clustering.MidMaxMbps),
		}
	}
	if c.Clustering.SubBroadbandFloorMbps >= c.Clustering.CapacityCeilingMbps {
		return &domain.ConfigurationError{
			Field:  "clustering.sub_broadband_floor_mbps",
			Reason: "sub-broadband floor must be below the capacity ceiling",
		}
	}
	if c.Clustering.MinClusterSize < 1 {
		return &domain.ConfigurationError{
			Field:  "clustering.min_cluster_size",
			Reason: "must be at least 1",
		}
	}
	switch c.Clustering.ExclusionScope {
	case ExclusionScopeSalesOnly, ExclusionScopeAllMatrices:
	default:
		return &domain.ConfigurationError{
			Field:  "clustering.exclusion_scope",
			Reason: fmt.Sprintf("unknown scope %q", c.Clustering.ExclusionScope),
		}
	}
	if c.Clustering.DataDriven {
		if c.Clustering.LowPercentile <= 0 || c.Clustering.HighPercentile >= 100 ||
			c.Clustering.LowPercentile >= c.Clustering.HighPercentile {
			return &domain.ConfigurationError{
				Field:  "clustering.low_percentile",
				Reason: "percentiles must satisfy 0 < low < high < 100",
			}
		}
	}
	switch c.Scoring.Strategy {
	case StrategyWeighted:
	case StrategyTrainedModel:
		if c.Scoring.ModelPath == "" {
			return &domain.ConfigurationError{
				Field:  "scoring.model_path",
				Reason: "trained_model strategy requires a model artifact path",
			}
		}
	default:
		return &domain.ConfigurationError{
			Field:  "scoring.strategy",
			Reason: fmt.Sprintf("unknown strategy %q", c.Scoring.Strategy),
		}
	}
	if c.Scoring.MediumCutoff <= 0 || c.Scoring.HighCutoff > 1 ||
		c.Scoring.MediumCutoff >= c.Scoring.HighCutoff {
		return &domain.ConfigurationError{
			Field:  "scoring.high_cutoff",
			Reason: "priority cutoffs must satisfy 0 < medium < high <= 1",
		}
	}
	if len(c.ROI.Scenarios) < 1 {
		return &domain.ConfigurationError{
			Field:  "roi.scenarios",
			Reason: "at least one conversion scenario is required",
		}
	}
	for _, s := range c.ROI.Scenarios {
		if s.Name == "" || s.ConversionRate <= 0 || s.ConversionRate > 1 {
			return &domain.ConfigurationError{
				Field:  "roi.scenarios",
				Reason: fmt.Sprintf("scenario %q needs a conversion rate in (0, 1]", s.Name),
			}
		}
	}
	if c.Pipeline.MaxRejectRate < 0 || c.Pipeline.MaxRejectRate > 1 {
		return &domain.ConfigurationError{
			Field:  "pipeline.max_reject_rate",
			Reason: "must be within [0, 1]",
		}
	}
	return nil
}
