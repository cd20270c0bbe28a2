// Package config provides unified configuration loading for the Forecast Engine.
// Supports YAML files, .env files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the Forecast Engine.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Model         ModelConfig         `yaml:"model"`
	Blend         BlendConfig         `yaml:"blend"`
	Prediction    PredictionConfig    `yaml:"prediction"`
	Reports       ReportsConfig       `yaml:"reports"`
	Cache         CacheConfig         `yaml:"cache"`
	Database      DatabaseConfig      `yaml:"database"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// UpstreamConfig holds settings for the business data API.
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url"`
	HistoryTimeout time.Duration `yaml:"history_timeout"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	PingTimeout    time.Duration `yaml:"ping_timeout"`
	RecentLimit    int           `yaml:"recent_limit"`
	TrainingSince  string        `yaml:"training_since"` // YYYY-MM-DD
}

// ModelConfig holds training and artifact settings.
type ModelConfig struct {
	Dir             string  `yaml:"dir"`
	Epochs          int     `yaml:"epochs"`
	BatchSize       int     `yaml:"batch_size"`
	ValidationSplit float64 `yaml:"validation_split"`
	TestSplit       float64 `yaml:"test_split"`
	Seed            int64   `yaml:"seed"`
	LearningRate    float64 `yaml:"learning_rate"`
	MinRows         int     `yaml:"min_rows"`
}

// BlendConfig holds the seasonal/recent blending policy.
type BlendConfig struct {
	StartYear      int     `yaml:"start_year"`
	SeasonalWeight float64 `yaml:"seasonal_weight"`
	RecentWeight   float64 `yaml:"recent_weight"`
	RecentMonths   int     `yaml:"recent_months"`
}

// PredictionConfig holds prediction serving settings.
type PredictionConfig struct {
	DefaultTopN int `yaml:"default_top_n"`
}

// ReportsConfig holds free-text report query settings.
type ReportsConfig struct {
	MinTextLength int `yaml:"min_text_length"`
	MaxTextLength int `yaml:"max_text_length"`
}

// CacheConfig holds cache settings for upstream fetches.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory, redis or none
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// DatabaseConfig holds run-history database settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}

		cfg.Model.Dir = ResolveRelativePath(path, cfg.Model.Dir)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8090,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     180 * time.Second,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   150 * time.Second,
			GracefulShutdown: 10 * time.Second,
			AllowedOrigins:   []string{"*"},
		},
		Upstream: UpstreamConfig{
			BaseURL:        "http://localhost:8081/api",
			HistoryTimeout: 120 * time.Second,
			QueryTimeout:   30 * time.Second,
			PingTimeout:    5 * time.Second,
			RecentLimit:    5000,
			TrainingSince:  "2023-01-01",
		},
		Model: ModelConfig{
			Dir:             "ml_models",
			Epochs:          50,
			BatchSize:       32,
			ValidationSplit: 0.2,
			TestSplit:       0.2,
			Seed:            42,
			LearningRate:    0.001,
			MinRows:         10,
		},
		Blend: BlendConfig{
			StartYear:      2023,
			SeasonalWeight: 0.7,
			RecentWeight:   0.3,
			RecentMonths:   3,
		},
		Prediction: PredictionConfig{
			DefaultTopN: 10,
		},
		Reports: ReportsConfig{
			MinTextLength: 5,
			MaxTextLength: 1000,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
				Prefix:   "fe:",
			},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "forecast-engine.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "forecast-engine",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base_url is required")
	}

	if c.Upstream.TrainingSince != "" {
		if _, err := time.Parse("2006-01-02", c.Upstream.TrainingSince); err != nil {
			return fmt.Errorf("invalid upstream training_since: %s", c.Upstream.TrainingSince)
		}
	}

	if c.Model.Epochs < 1 {
		return fmt.Errorf("model epochs must be positive")
	}

	if c.Model.BatchSize < 1 {
		return fmt.Errorf("model batch_size must be positive")
	}

	if c.Model.ValidationSplit < 0 || c.Model.ValidationSplit >= 1 {
		return fmt.Errorf("model validation_split must be in [0, 1)")
	}

	if c.Model.TestSplit < 0 || c.Model.TestSplit >= 1 {
		return fmt.Errorf("model test_split must be in [0, 1)")
	}

	if c.Blend.SeasonalWeight < 0 || c.Blend.RecentWeight < 0 {
		return fmt.Errorf("blend weights must not be negative")
	}

	if c.Blend.RecentMonths < 1 {
		return fmt.Errorf("blend recent_months must be positive")
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" && c.Cache.Driver != "none" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("NEGOCIO_API_URL"); v != "" {
		cfg.Upstream.BaseURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("MODEL_DIR"); v != "" {
		cfg.Model.Dir = v
	}

	if v := os.Getenv("MODEL_EPOCHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Model.Epochs = n
		}
	}

	if v := os.Getenv("BLEND_START_YEAR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Blend.StartYear = n
		}
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("SERVICE_NAME"); v != "" {
		cfg.Observability.ServiceName = v
	}
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if targetPath == "" || filepath.IsAbs(targetPath) {
		return targetPath
	}
	configDir := filepath.Dir(configPath)
	return filepath.Join(configDir, targetPath)
}
