package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Warehouse   WarehouseConfig   `yaml:"warehouse"`
	Attribution AttributionConfig `yaml:"attribution"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnLifetime returns the configured connection lifetime as a duration
func (c DatabaseConfig) ConnLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Minute
}

// RedisConfig holds Redis settings for the attribution result cache
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Enabled    bool   `yaml:"enabled"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL returns the cache entry lifetime as a duration
func (c RedisConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// WarehouseConfig holds Snowflake configuration for validation-tag data
type WarehouseConfig struct {
	Account         string `yaml:"account"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	Schema          string `yaml:"schema"`
	Warehouse       string `yaml:"warehouse"`
	Enabled         bool   `yaml:"enabled"`
	IntervalMinutes int    `yaml:"interval_minutes"`
}

// Interval returns the validation collector poll interval as a duration
func (c WarehouseConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// AttributionConfig holds the policy constants for impact measurement and
// ROAS attribution. The magic numbers from the original calibration are
// deliberately configuration, not hardcoded truths: their derivation is
// unknown and should not be assumed to generalize across marketplaces.
type AttributionConfig struct {
	// Counterfactual engine
	BeforeDays          int     `yaml:"before_days"`
	AfterDays           int     `yaml:"after_days"`
	MinClicks           int64   `yaml:"min_clicks"`
	ConfidenceDivisor   float64 `yaml:"confidence_divisor"`
	DirectionalClickCap int64   `yaml:"directional_click_cap"`

	// Summarizer
	ZScore float64 `yaml:"z_score"`

	// ROAS attribution
	ScaleThresholdPct     float64 `yaml:"scale_threshold_pct"`
	ScaleCoefficient      float64 `yaml:"scale_coefficient"`
	PortfolioThresholdPct float64 `yaml:"portfolio_threshold_pct"`
	NewCampaignEfficiency float64 `yaml:"new_campaign_efficiency"`
	ConfoundThresholdPct  float64 `yaml:"confound_threshold_pct"`
	LargeResidual         float64 `yaml:"large_residual"`
	ReconcileTolerance    float64 `yaml:"reconcile_tolerance"`

	// Action batch undo
	UndoWindowHours int `yaml:"undo_window_hours"`
}

// UndoWindow returns the batch undo window as a duration
func (c AttributionConfig) UndoWindow() time.Duration {
	return time.Duration(c.UndoWindowHours) * time.Hour
}

// ValidateWindows rejects caller-supplied window sizes that indicate a
// programming error. Data-quality conditions never reach here; this is the
// one class of input that fails loudly.
func (c AttributionConfig) ValidateWindows(beforeDays, afterDays int) error {
	if beforeDays <= 0 {
		return fmt.Errorf("before_days must be positive, got %d", beforeDays)
	}
	if afterDays <= 0 {
		return fmt.Errorf("after_days must be positive, got %d", afterDays)
	}
	return nil
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
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.TTLSeconds == 0 {
		cfg.Redis.TTLSeconds = 300
	}
	if cfg.Warehouse.IntervalMinutes == 0 {
		cfg.Warehouse.IntervalMinutes = 60
	}
	applyAttributionDefaults(&cfg.Attribution)

	return &cfg, nil
}

func applyAttributionDefaults(a *AttributionConfig) {
	if a.BeforeDays == 0 {
		a.BeforeDays = 14
	}
	if a.AfterDays == 0 {
		a.AfterDays = 14
	}
	if a.MinClicks == 0 {
		a.MinClicks = 5
	}
	if a.ConfidenceDivisor == 0 {
		a.ConfidenceDivisor = 15
	}
	if a.DirectionalClickCap == 0 {
		a.DirectionalClickCap = 15
	}
	if a.ZScore == 0 {
		a.ZScore = 1.96
	}
	if a.ScaleThresholdPct == 0 {
		a.ScaleThresholdPct = 0.20
	}
	if a.ScaleCoefficient == 0 {
		a.ScaleCoefficient = 0.05
	}
	if a.PortfolioThresholdPct == 0 {
		a.PortfolioThresholdPct = 0.20
	}
	if a.NewCampaignEfficiency == 0 {
		a.NewCampaignEfficiency = 0.65
	}
	if a.ConfoundThresholdPct == 0 {
		a.ConfoundThresholdPct = 0.30
	}
	if a.LargeResidual == 0 {
		a.LargeResidual = 0.15
	}
	if a.ReconcileTolerance == 0 {
		a.ReconcileTolerance = 0.20
	}
	if a.UndoWindowHours == 0 {
		a.UndoWindowHours = 24
	}
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

	// Database override (critical for container deployment where the yaml
	// file carries local defaults)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}

	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Warehouse.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Warehouse.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Warehouse.Password = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	return cfg, nil
}
