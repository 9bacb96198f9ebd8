package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" yaml:"environment" env:"HANZIKIT_ENV"`
	Profile     string      `json:"profile" yaml:"profile" env:"HANZIKIT_PROFILE"`

	Server       ServerConfig       `json:"server" yaml:"server"`
	Storage      StorageConfig      `json:"storage" yaml:"storage"`
	Engine       EngineConfig       `json:"engine" yaml:"engine"`
	Logging      LoggingConfig      `json:"logging" yaml:"logging"`
	Metrics      MetricsConfig      `json:"metrics" yaml:"metrics"`
	Security     SecurityConfig     `json:"security" yaml:"security"`
	Integrations IntegrationsConfig `json:"integrations" yaml:"integrations"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" yaml:"address" env:"HANZIKIT_SERVER_ADDR"`
	PathPrefix        string        `json:"path_prefix" yaml:"path_prefix" env:"HANZIKIT_SERVER_PATH_PREFIX"`
	CORSOrigins       []string      `json:"cors_origins" yaml:"cors_origins" env:"HANZIKIT_SERVER_CORS_ORIGINS"`
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" env:"HANZIKIT_SERVER_READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" yaml:"write_timeout" env:"HANZIKIT_SERVER_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" yaml:"idle_timeout" env:"HANZIKIT_SERVER_IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" yaml:"read_header_timeout" env:"HANZIKIT_SERVER_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"HANZIKIT_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects and configures the progress store
type StorageConfig struct {
	Adapter string      `json:"adapter" yaml:"adapter" env:"HANZIKIT_STORAGE_ADAPTER"`
	Redis   RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
	SQL     SQLConfig   `json:"sql,omitempty" yaml:"sql,omitempty"`
	File    FileConfig  `json:"file,omitempty" yaml:"file,omitempty"`
}

// RedisConfig holds Redis store settings. Password is a secret.
type RedisConfig struct {
	Addr         string        `json:"addr" yaml:"addr" env:"HANZIKIT_REDIS_ADDR"`
	Password     string        `json:"password,omitempty" yaml:"password,omitempty"`
	DB           int           `json:"db" yaml:"db" env:"HANZIKIT_REDIS_DB"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size" env:"HANZIKIT_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns" env:"HANZIKIT_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" env:"HANZIKIT_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" env:"HANZIKIT_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" env:"HANZIKIT_REDIS_WRITE_TIMEOUT"`
	KeyPrefix    string        `json:"key_prefix" yaml:"key_prefix" env:"HANZIKIT_REDIS_KEY_PREFIX"`
}

// SQLConfig holds SQL store settings. DSN is a secret.
type SQLConfig struct {
	Driver          string        `json:"driver" yaml:"driver" env:"HANZIKIT_SQL_DRIVER"`
	DSN             string        `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"HANZIKIT_SQL_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"HANZIKIT_SQL_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime" env:"HANZIKIT_SQL_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `json:"auto_migrate" yaml:"auto_migrate" env:"HANZIKIT_SQL_AUTO_MIGRATE"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Dir string `json:"dir" yaml:"dir" env:"HANZIKIT_STORAGE_FILE_DIR"`
}

// EngineConfig tunes event dispatch and the leaderboard.
type EngineConfig struct {
	Dispatch           string `json:"dispatch" yaml:"dispatch" env:"HANZIKIT_ENGINE_DISPATCH"`
	LeaderboardSize    int    `json:"leaderboard_size" yaml:"leaderboard_size" env:"HANZIKIT_ENGINE_LEADERBOARD_SIZE"`
	RebuildLeaderboard bool   `json:"rebuild_leaderboard" yaml:"rebuild_leaderboard" env:"HANZIKIT_ENGINE_REBUILD_LEADERBOARD"`
	QueueSize          int    `json:"queue_size" yaml:"queue_size" env:"HANZIKIT_ENGINE_QUEUE_SIZE"`
	Workers            int    `json:"workers" yaml:"workers" env:"HANZIKIT_ENGINE_WORKERS"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" yaml:"level" env:"HANZIKIT_LOG_LEVEL"`
	Format     string            `json:"format" yaml:"format" env:"HANZIKIT_LOG_FORMAT"`
	Output     string            `json:"output" yaml:"output" env:"HANZIKIT_LOG_OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty" env:"HANZIKIT_LOG_ATTRIBUTES"`
}

// MetricsConfig controls the analytics snapshot endpoint
type MetricsConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled" env:"HANZIKIT_METRICS_ENABLED"`
	Path            string `json:"path" yaml:"path" env:"HANZIKIT_METRICS_PATH"`
	TopAchievements int    `json:"top_achievements" yaml:"top_achievements" env:"HANZIKIT_METRICS_TOP_ACHIEVEMENTS"`
}

// SecurityConfig holds security-related configuration. APIKeys are secrets.
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" yaml:"enable_rate_limit" env:"HANZIKIT_SECURITY_RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" yaml:"api_keys,omitempty"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" yaml:"requests_per_minute" env:"HANZIKIT_SECURITY_RATE_LIMIT_RPM"`
	BurstSize         int           `json:"burst_size" yaml:"burst_size" env:"HANZIKIT_SECURITY_RATE_LIMIT_BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" yaml:"cleanup_interval" env:"HANZIKIT_SECURITY_RATE_LIMIT_CLEANUP"`
}

// IntegrationsConfig lists outbound event sinks. WebhookSecret is a secret.
type IntegrationsConfig struct {
	Webhooks       []string      `json:"webhooks,omitempty" yaml:"webhooks,omitempty" env:"HANZIKIT_WEBHOOK_URLS"`
	WebhookSecret  string        `json:"webhook_secret,omitempty" yaml:"webhook_secret,omitempty"`
	WebhookTimeout time.Duration `json:"webhook_timeout" yaml:"webhook_timeout" env:"HANZIKIT_WEBHOOK_TIMEOUT"`
}

// Load builds configuration from the profile named by HANZIKIT_PROFILE (or
// the defaults), environment variables and secrets, then validates it.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if name := os.Getenv("HANZIKIT_PROFILE"); name != "" {
		p, err := profileConfig(name)
		if err != nil {
			return nil, err
		}
		cfg = p
	}
	return finish(cfg)
}

// finish applies env overrides and secrets and validates.
func finish(cfg *Config) (*Config, error) {
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := LoadSecretsFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var configExtensions = []string{".json", ".yaml", ".yml"}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(cleanPath))
	known := false
	for _, e := range configExtensions {
		if ext == e {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("config file must have one of the extensions %s", strings.Join(configExtensions, ", "))
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file. Values absent
// from the file keep their defaults; environment variables override both.
func LoadFromFile(path string) (*Config, error) {
	// Validate the path for security
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	// Open the file safely after validation
	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return finish(cfg)
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigins:       []string{"*"},
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis: RedisConfig{
				Addr:         "localhost:6379",
				PoolSize:     10,
				MinIdleConns: 2,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
				KeyPrefix:    "progress",
			},
			SQL: SQLConfig{
				Driver:          "sqlite",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
				AutoMigrate:     true,
			},
			File: FileConfig{
				Dir: "./data",
			},
		},
		Engine: EngineConfig{
			Dispatch:           "sync",
			LeaderboardSize:    10,
			RebuildLeaderboard: true,
			QueueSize:          2048,
			Workers:            4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			Path:            "/metrics",
			TopAchievements: 5,
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
			APIKeys: []string{},
		},
		Integrations: IntegrationsConfig{
			WebhookTimeout: 2 * time.Second,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"server", &c.Server},
		{"storage", &c.Storage},
		{"engine", &c.Engine},
		{"logging", &c.Logging},
		{"metrics", &c.Metrics},
		{"security", c.Security},
		{"integrations", &c.Integrations},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("%s config: %v", s.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{"[REDACTED]"}
	}
	if cfg.Integrations.WebhookSecret != "" {
		cfg.Integrations.WebhookSecret = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
