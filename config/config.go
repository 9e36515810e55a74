// Package config provides configuration management for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Ratings backend names.
const (
	RatingsBackendFile       = "file"
	RatingsBackendSQLite     = "sqlite"
	RatingsBackendPostgreSQL = "postgresql"
	RatingsBackendMongoDB    = "mongodb"
	RatingsBackendRedis      = "redis"
)

// Log formats.
const (
	LogFormatPretty = "pretty"
	LogFormatJSON   = "json"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Registry RegistryConfig `yaml:"registry"`
	Ratings  RatingsConfig  `yaml:"ratings"`
	Storage  StorageConfig  `yaml:"storage"`
	Policy   PolicyConfig   `yaml:"policy"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LogConfig      `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Puter    PuterConfig    `yaml:"puter"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	// MasterKey enables bearer authentication on /api routes when set
	MasterKey     string `yaml:"master_key"`
	BodySizeLimit string `yaml:"body_size_limit"`
}

// RegistryConfig locates the declarative model registry.
type RegistryConfig struct {
	Path string `yaml:"path"`
	// ReloadInterval is the catalog staleness window in seconds
	ReloadInterval int `yaml:"reload_interval"`
}

// RatingsConfig selects the durable store for rating overrides.
type RatingsConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the redis ratings backend.
type RedisConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// StorageConfig holds database connection settings shared by the SQL and document backends.
type StorageConfig struct {
	SQLite     SQLiteStorageConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLStorageConfig `yaml:"postgresql"`
	MongoDB    MongoDBStorageConfig    `yaml:"mongodb"`
}

// SQLiteStorageConfig holds SQLite-specific storage configuration
type SQLiteStorageConfig struct {
	Path string `yaml:"path"`
}

// PostgreSQLStorageConfig holds PostgreSQL-specific storage configuration
type PostgreSQLStorageConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

// MongoDBStorageConfig holds MongoDB-specific storage configuration
type MongoDBStorageConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// PolicyConfig holds the tunable constants of the quota and health policies.
type PolicyConfig struct {
	DefaultWaitSeconds  int `yaml:"default_wait_seconds"`
	HealthCapacity      int `yaml:"health_capacity"`
	HealthWindowMinutes int `yaml:"health_window_minutes"`
	StaleSuccessMinutes int `yaml:"stale_success_minutes"`
	StaleMinCalls       int `yaml:"stale_min_calls"`
}

// HTTPConfig holds outbound HTTP client settings (seconds).
type HTTPConfig struct {
	Timeout               int `yaml:"timeout"`
	ResponseHeaderTimeout int `yaml:"response_header_timeout"`
}

// LogConfig holds process logging settings.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// PuterConfig locates the host-side bridge of the brokered provider.
type PuterConfig struct {
	BridgeURL string `yaml:"bridge_url"`
	Token     string `yaml:"token"`
}

// configPaths are tried in order when CONFIG_PATH is not set.
var configPaths = []string{"config/config.yaml", "config.yaml"}

// Load reads configuration from defaults, an optional YAML file and the environment.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := buildDefaultConfig()

	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: "2M",
		},
		Registry: RegistryConfig{
			Path:           "config/models.yaml",
			ReloadInterval: 60,
		},
		Ratings: RatingsConfig{
			Backend: RatingsBackendFile,
			Path:    "data/ratings.json",
			Redis: RedisConfig{
				Key: "modelrouter:ratings",
			},
		},
		Storage: StorageConfig{
			SQLite:     SQLiteStorageConfig{Path: "data/modelrouter.db"},
			PostgreSQL: PostgreSQLStorageConfig{MaxConns: 10},
			MongoDB:    MongoDBStorageConfig{Database: "modelrouter"},
		},
		Policy: PolicyConfig{
			DefaultWaitSeconds:  60,
			HealthCapacity:      100,
			HealthWindowMinutes: 60,
			StaleSuccessMinutes: 15,
			StaleMinCalls:       6,
		},
		HTTP: HTTPConfig{
			Timeout:               600,
			ResponseHeaderTimeout: 600,
		},
		Logging: LogConfig{
			Format: LogFormatPretty,
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
	}
}

func resolveConfigPath() (string, error) {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
		return p, nil
	}
	for _, p := range configPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} placeholders.
// Unresolved placeholders without a default are left as-is.
func expandString(s string) string {
	if s == "" {
		return s
	}
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		if groups[2] != "" {
			return groups[3]
		}
		return match
	})
}

func applyEnvOverrides(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.MasterKey, "MODELROUTER_MASTER_KEY")
	setString(&cfg.Server.BodySizeLimit, "BODY_SIZE_LIMIT")

	setString(&cfg.Registry.Path, "REGISTRY_PATH")
	setString(&cfg.Ratings.Backend, "RATINGS_BACKEND")
	setString(&cfg.Ratings.Path, "RATINGS_PATH")
	setString(&cfg.Ratings.Redis.URL, "REDIS_URL")
	setString(&cfg.Ratings.Redis.Key, "REDIS_RATINGS_KEY")

	setString(&cfg.Storage.SQLite.Path, "SQLITE_PATH")
	setString(&cfg.Storage.PostgreSQL.URL, "POSTGRES_URL")
	setString(&cfg.Storage.MongoDB.URL, "MONGODB_URL")
	setString(&cfg.Storage.MongoDB.Database, "MONGODB_DATABASE")

	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Metrics.Endpoint, "METRICS_ENDPOINT")
	setString(&cfg.Puter.BridgeURL, "PUTER_BRIDGE_URL")
	setString(&cfg.Puter.Token, "PUTER_TOKEN")

	ints := []struct {
		target *int
		env    string
	}{
		{&cfg.Registry.ReloadInterval, "REGISTRY_RELOAD_INTERVAL"},
		{&cfg.Storage.PostgreSQL.MaxConns, "POSTGRES_MAX_CONNS"},
		{&cfg.Policy.DefaultWaitSeconds, "POLICY_DEFAULT_WAIT_SECONDS"},
		{&cfg.Policy.HealthCapacity, "POLICY_HEALTH_CAPACITY"},
		{&cfg.Policy.HealthWindowMinutes, "POLICY_HEALTH_WINDOW_MINUTES"},
		{&cfg.Policy.StaleSuccessMinutes, "POLICY_STALE_SUCCESS_MINUTES"},
		{&cfg.Policy.StaleMinCalls, "POLICY_STALE_MIN_CALLS"},
		{&cfg.HTTP.Timeout, "HTTP_TIMEOUT"},
		{&cfg.HTTP.ResponseHeaderTimeout, "HTTP_RESPONSE_HEADER_TIMEOUT"},
	}
	for _, i := range ints {
		if err := setInt(i.target, i.env); err != nil {
			return err
		}
	}

	return setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED")
}

func setString(target *string, env string) {
	if v := os.Getenv(env); v != "" {
		*target = v
	}
}

func setInt(target *int, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", env, v, err)
	}
	*target = n
	return nil
}

func setBool(target *bool, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s=%q: %w", env, v, err)
	}
	*target = b
	return nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Registry.Path == "" {
		errs = append(errs, errors.New("registry.path is required"))
	}
	if c.Registry.ReloadInterval < 0 {
		errs = append(errs, errors.New("registry.reload_interval must not be negative"))
	}

	switch c.Ratings.Backend {
	case RatingsBackendFile:
		if c.Ratings.Path == "" {
			errs = append(errs, errors.New("ratings.path is required for the file backend"))
		}
	case RatingsBackendSQLite:
	case RatingsBackendPostgreSQL:
		if c.Storage.PostgreSQL.URL == "" {
			errs = append(errs, errors.New("storage.postgresql.url is required for the postgresql backend"))
		}
	case RatingsBackendMongoDB:
		if c.Storage.MongoDB.URL == "" {
			errs = append(errs, errors.New("storage.mongodb.url is required for the mongodb backend"))
		}
	case RatingsBackendRedis:
		if c.Ratings.Redis.URL == "" {
			errs = append(errs, errors.New("ratings.redis.url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ratings backend %q (valid: file, sqlite, postgresql, mongodb, redis)", c.Ratings.Backend))
	}

	if c.Policy.DefaultWaitSeconds < 0 {
		errs = append(errs, errors.New("policy.default_wait_seconds must not be negative"))
	}
	if c.Policy.HealthCapacity <= 0 {
		errs = append(errs, errors.New("policy.health_capacity must be positive"))
	}
	if c.Policy.HealthWindowMinutes <= 0 {
		errs = append(errs, errors.New("policy.health_window_minutes must be positive"))
	}

	switch c.Logging.Format {
	case LogFormatPretty, LogFormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown logging.format %q (valid: pretty, json)", c.Logging.Format))
	}

	return errors.Join(errs...)
}
