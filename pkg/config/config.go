package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
// Load() is the only place environment variables are read; every
// component receives its tunables from here at construction.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Inputs and outputs
	Data DataConfig

	// Fusion and ledger tunables
	Pipeline PipelineConfig

	// Ledger persistence
	Ledger LedgerConfig

	// Database (only required for the postgres ledger backend)
	Database DatabaseConfig

	// Redis (run lock)
	Redis RedisConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// DataConfig holds the fixed locations of the tabular inputs and outputs.
type DataConfig struct {
	Dir            string // base directory, prefixed onto relative paths
	PriceSpine     string
	EntityMap      string
	ShortageEvents string
	RiskEvents     string
	Scores         string // model scores for the latest slice, optional
	GroundTruth    string // price history used by reconciliation
	FeatureTable   string // fused output
}

// PipelineConfig holds the fusion and ledger tunables. Values may be
// overridden by a YAML file (PIPELINE_CONFIG) before validation.
type PipelineConfig struct {
	LookaheadDays     int     `yaml:"lookahead_days"`      // prediction horizon
	RiskToleranceDays int     `yaml:"risk_tolerance_days"` // risk-event staleness cap
	MomentumWindow    int     `yaml:"momentum_window"`
	VolatilityWindow  int     `yaml:"volatility_window"`
	SpikeScoreCutoff  float64 `yaml:"spike_score_cutoff"`  // predicted_score > cutoff = spike call
	SpikeReturnCutoff float64 `yaml:"spike_return_cutoff"` // outcome_pct > cutoff = realized spike

	// Defaults applied by the composer where a merge produced no value.
	DefaultHHI         float64 `yaml:"default_hhi"`
	DefaultCompetitors int     `yaml:"default_competitors"`
	DefaultRiskScore   float64 `yaml:"default_risk_score"`
}

// LedgerConfig selects and locates the prediction registry store.
type LedgerConfig struct {
	Backend      string // "file" or "postgres"
	RegistryPath string // file backend
	LockTTL      time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration for the single-writer run lock.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// Load reads configuration from the environment (with optional .env file
// and YAML pipeline overlay) and validates it.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8091"),
		Env:  getEnv("ENV", "development"),

		Data: DataConfig{
			Dir:            getEnv("DATA_DIR", "data"),
			PriceSpine:     getEnv("PRICE_SPINE_PATH", "processed/price_history.csv"),
			EntityMap:      getEnv("ENTITY_MAP_PATH", "processed/entity_map.csv"),
			ShortageEvents: getEnv("SHORTAGE_EVENTS_PATH", "processed/shortage_events.csv"),
			RiskEvents:     getEnv("RISK_EVENTS_PATH", "processed/sentinel_risks.csv"),
			Scores:         getEnv("SCORES_PATH", "outputs/model_scores.csv"),
			GroundTruth:    getEnv("GROUND_TRUTH_PATH", "processed/price_history.csv"),
			FeatureTable:   getEnv("FEATURE_TABLE_PATH", "processed/weekly_features.csv"),
		},

		Pipeline: PipelineConfig{
			LookaheadDays:      getEnvAsInt("LOOKAHEAD_DAYS", 28),
			RiskToleranceDays:  getEnvAsInt("RISK_TOLERANCE_DAYS", 90),
			MomentumWindow:     getEnvAsInt("MOMENTUM_WINDOW", 4),
			VolatilityWindow:   getEnvAsInt("VOLATILITY_WINDOW", 12),
			SpikeScoreCutoff:   getEnvAsFloat("SPIKE_SCORE_CUTOFF", 0.5),
			SpikeReturnCutoff:  getEnvAsFloat("SPIKE_RETURN_CUTOFF", 0.05),
			DefaultHHI:         0,
			DefaultCompetitors: 1,
			DefaultRiskScore:   0,
		},

		Ledger: LedgerConfig{
			Backend:      getEnv("LEDGER_BACKEND", "file"),
			RegistryPath: getEnv("REGISTRY_PATH", "outputs/prediction_registry.csv"),
			LockTTL:      getEnvAsDuration("LEDGER_LOCK_TTL", "10m"),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9091"),
	}

	if path := getEnv("PIPELINE_CONFIG", ""); path != "" {
		if err := cfg.Pipeline.applyFile(path); err != nil {
			return nil, fmt.Errorf("pipeline config overlay: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Resolve joins a data path onto the base data directory. Absolute paths
// pass through untouched.
func (d DataConfig) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.Dir, path)
}

// applyFile overlays YAML values onto the pipeline tunables.
func (p *PipelineConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// validate checks required and bounded configuration values.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Ledger.Backend {
	case "file":
		if c.Ledger.RegistryPath == "" {
			return fmt.Errorf("REGISTRY_PATH is required for the file ledger backend")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres ledger backend")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be file or postgres, got %q", c.Ledger.Backend)
	}

	p := c.Pipeline
	if p.LookaheadDays <= 0 {
		return fmt.Errorf("lookahead_days must be positive, got %d", p.LookaheadDays)
	}
	if p.RiskToleranceDays < 0 {
		return fmt.Errorf("risk_tolerance_days must not be negative, got %d", p.RiskToleranceDays)
	}
	if p.MomentumWindow <= 0 || p.VolatilityWindow <= 0 {
		return fmt.Errorf("rolling windows must be positive, got momentum=%d volatility=%d",
			p.MomentumWindow, p.VolatilityWindow)
	}
	if p.DefaultCompetitors < 1 {
		return fmt.Errorf("default_competitors must be >= 1, got %d", p.DefaultCompetitors)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
