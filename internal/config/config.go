package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Upstream accounts API configuration
	Upstream UpstreamConfig

	// History store configuration
	History HistoryConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Watcher configuration
	Watcher WatcherConfig

	// Logging configuration
	Log LogConfig
}

// UpstreamConfig holds settings for the accounts API
type UpstreamConfig struct {
	BaseURL   string        `envconfig:"UPSTREAM_URL" default:"http://localhost:8000"`
	Path      string        `envconfig:"UPSTREAM_PATH" default:"/lighter/api/fetch_accounts"`
	Timeout   time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"0s"`
	UserAgent string        `envconfig:"UPSTREAM_USER_AGENT" default:"LighterTracker/1.0"`
}

// HistoryConfig holds balance history settings
type HistoryConfig struct {
	// Backend selects the key-value store: redis, postgres or memory
	Backend       string `envconfig:"HISTORY_BACKEND" default:"redis"`
	KeyPrefix     string `envconfig:"HISTORY_KEY_PREFIX" default:"lighter_history_"`
	MaxSnapshots  int    `envconfig:"HISTORY_MAX_SNAPSHOTS" default:"100"`
	MaxAddresses  int    `envconfig:"HISTORY_MAX_ADDRESSES" default:"100"`
	MaxValueBytes int    `envconfig:"HISTORY_MAX_VALUE_BYTES" default:"5242880"`
	TimeZone      string `envconfig:"HISTORY_TIME_ZONE" default:"Asia/Seoul"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"tracker"`
	Password        string        `envconfig:"DB_PASSWORD" default:"tracker"`
	Name            string        `envconfig:"DB_NAME" default:"lighter_tracker"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host               string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port               int           `envconfig:"API_PORT" default:"8081"`
	ReadTimeout        time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout       time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout    time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitPerMinute int           `envconfig:"API_RATE_LIMIT_PER_MINUTE" default:"10"`
	SecureCookies      bool          `envconfig:"API_SECURE_COOKIES" default:"false"`
}

// WatcherConfig holds settings for periodic snapshotting
type WatcherConfig struct {
	MetricsPort int           `envconfig:"WATCHER_METRICS_PORT" default:"8080"`
	Interval    time.Duration `envconfig:"WATCHER_INTERVAL" default:"1h"`

	// Address sets separated by ';', addresses within a set by ','
	AddressSets string `envconfig:"WATCHER_ADDRESS_SETS" default:""`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the limits that the history store depends on
func (c *Config) Validate() error {
	if c.History.MaxSnapshots < 1 {
		return fmt.Errorf("HISTORY_MAX_SNAPSHOTS must be positive, got %d", c.History.MaxSnapshots)
	}
	if c.History.MaxAddresses < 1 {
		return fmt.Errorf("HISTORY_MAX_ADDRESSES must be positive, got %d", c.History.MaxAddresses)
	}
	switch c.History.Backend {
	case "redis", "postgres", "memory":
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND %q", c.History.Backend)
	}
	if _, err := time.LoadLocation(c.History.TimeZone); err != nil {
		return fmt.Errorf("invalid HISTORY_TIME_ZONE: %w", err)
	}
	return nil
}

// Location returns the time zone used for exported timestamps
func (c *HistoryConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Endpoint returns the full URL of the accounts endpoint
func (c *UpstreamConfig) Endpoint() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.Path, "/")
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// ParseAddressSets splits the watcher address sets
func (c *WatcherConfig) ParseAddressSets() [][]string {
	var sets [][]string
	for _, group := range strings.Split(c.AddressSets, ";") {
		var set []string
		for _, addr := range strings.Split(group, ",") {
			addr = strings.TrimSpace(addr)
			if addr != "" {
				set = append(set, addr)
			}
		}
		if len(set) > 0 {
			sets = append(sets, set)
		}
	}
	return sets
}
