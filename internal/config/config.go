// Package config defines the top-level configuration for the stackcast
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by STACKCAST_* environment
// variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Market   MarketConfig   `toml:"market"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// APIKey gates mutating endpoints. APIKeyHash, when set, takes
	// precedence and holds a bcrypt hash of the key.
	APIKey     string `toml:"api_key"`
	APIKeyHash string `toml:"api_key_hash"`

	RateLimitRequests int      `toml:"rate_limit_requests"`
	RateLimitWindow   duration `toml:"rate_limit_window"`
}

// StorageConfig selects and configures the durable store.
type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend string `toml:"backend"`

	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis is optional; when
// disabled the service uses in-process fallbacks.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters, used by the
// trade archiver in full mode.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the trade archiver.
type ArchiveConfig struct {
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
	BatchSize     int      `toml:"batch_size"`
}

// MarketConfig holds market registry parameters.
type MarketConfig struct {
	// Seed loads the built-in demo markets at startup (memory backend).
	Seed             bool    `toml:"seed"`
	DefaultLiquidity float64 `toml:"default_liquidity"`
	DefaultCategory  string  `toml:"default_category"`

	// LargeTradeUSD triggers an operator alert; zero disables it.
	LargeTradeUSD float64 `toml:"large_trade_usd"`
}

// NotifyConfig holds notification channel parameters.
type NotifyConfig struct {
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "5m" or "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration: a public in-memory server
// with seeded demo markets and no external services.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:              8000,
			CORSOrigins:       []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitRequests: 0,
			RateLimitWindow:   duration{time.Second},
		},
		Storage: StorageConfig{
			Backend:       "memory",
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Archive: ArchiveConfig{
			RetentionDays: 90,
			Interval:      duration{1 * time.Hour},
			BatchSize:     1000,
		},
		Market: MarketConfig{
			Seed:             true,
			DefaultLiquidity: 1000,
			DefaultCategory:  "Other",
			LargeTradeUSD:    5000,
		},
		Notify: NotifyConfig{
			Events: []string{"large_trade", "market_resolved"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validBackends enumerates the accepted values for Storage.Backend.
var validBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
}

// Validate checks Config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow.Duration <= 0 {
		errs = append(errs, "server: rate_limit_window must be > 0 when rate limiting is enabled")
	}
	if c.Server.RateLimitRequests > 0 && !c.Redis.Enabled {
		errs = append(errs, "server: rate limiting requires redis to be enabled")
	}

	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, fmt.Sprintf("storage: unknown backend %q (valid: memory, postgres)", c.Storage.Backend))
	}
	if strings.EqualFold(c.Storage.Backend, "postgres") && strings.TrimSpace(c.Storage.DSN) == "" {
		if c.Storage.Host == "" {
			errs = append(errs, "storage: host must not be empty (or set storage.dsn)")
		}
		if c.Storage.Port <= 0 || c.Storage.Port > 65535 {
			errs = append(errs, fmt.Sprintf("storage: port must be 1-65535, got %d", c.Storage.Port))
		}
		if c.Storage.Database == "" {
			errs = append(errs, "storage: database must not be empty")
		}
	}
	if c.Storage.PoolMaxConns < 1 {
		errs = append(errs, "storage: pool_max_conns must be >= 1")
	}
	if c.Storage.PoolMinConns < 0 {
		errs = append(errs, "storage: pool_min_conns must be >= 0")
	}
	if c.Storage.PoolMinConns > c.Storage.PoolMaxConns {
		errs = append(errs, "storage: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if strings.EqualFold(c.Mode, "full") {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty in full mode")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty in full mode")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	if c.Market.DefaultLiquidity <= 0 {
		errs = append(errs, "market: default_liquidity must be > 0")
	}
	if c.Market.LargeTradeUSD < 0 {
		errs = append(errs, "market: large_trade_usd must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
