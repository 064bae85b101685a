package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies STACKCAST_* environment variable overrides,
// and returns the final Config. The caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides reads well-known STACKCAST_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "STACKCAST_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "STACKCAST_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "STACKCAST_SERVER_API_KEY")
	setStr(&cfg.Server.APIKeyHash, "STACKCAST_SERVER_API_KEY_HASH")
	setInt(&cfg.Server.RateLimitRequests, "STACKCAST_SERVER_RATE_LIMIT_REQUESTS")
	setDuration(&cfg.Server.RateLimitWindow, "STACKCAST_SERVER_RATE_LIMIT_WINDOW")

	// ── Storage ──
	setStr(&cfg.Storage.Backend, "STACKCAST_STORAGE_BACKEND")
	setStr(&cfg.Storage.DSN, "STACKCAST_STORAGE_DSN")
	setStr(&cfg.Storage.Host, "STACKCAST_STORAGE_HOST")
	setInt(&cfg.Storage.Port, "STACKCAST_STORAGE_PORT")
	setStr(&cfg.Storage.Database, "STACKCAST_STORAGE_DATABASE")
	setStr(&cfg.Storage.User, "STACKCAST_STORAGE_USER")
	setStr(&cfg.Storage.Password, "STACKCAST_STORAGE_PASSWORD")
	setStr(&cfg.Storage.SSLMode, "STACKCAST_STORAGE_SSL_MODE")
	setInt(&cfg.Storage.PoolMaxConns, "STACKCAST_STORAGE_POOL_MAX_CONNS")
	setInt(&cfg.Storage.PoolMinConns, "STACKCAST_STORAGE_POOL_MIN_CONNS")
	setBool(&cfg.Storage.RunMigrations, "STACKCAST_STORAGE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "STACKCAST_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "STACKCAST_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STACKCAST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STACKCAST_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STACKCAST_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "STACKCAST_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "STACKCAST_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "STACKCAST_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "STACKCAST_S3_REGION")
	setStr(&cfg.S3.Bucket, "STACKCAST_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "STACKCAST_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "STACKCAST_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "STACKCAST_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "STACKCAST_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setInt(&cfg.Archive.RetentionDays, "STACKCAST_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "STACKCAST_ARCHIVE_INTERVAL")
	setInt(&cfg.Archive.BatchSize, "STACKCAST_ARCHIVE_BATCH_SIZE")

	// ── Market ──
	setBool(&cfg.Market.Seed, "STACKCAST_MARKET_SEED")
	setFloat64(&cfg.Market.DefaultLiquidity, "STACKCAST_MARKET_DEFAULT_LIQUIDITY")
	setStr(&cfg.Market.DefaultCategory, "STACKCAST_MARKET_DEFAULT_CATEGORY")
	setFloat64(&cfg.Market.LargeTradeUSD, "STACKCAST_MARKET_LARGE_TRADE_USD")

	// ── Notify ──
	setStr(&cfg.Notify.DiscordWebhookURL, "STACKCAST_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "STACKCAST_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "STACKCAST_MODE")
	setStr(&cfg.LogLevel, "STACKCAST_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
