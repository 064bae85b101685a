package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/stackcast/stackcast/internal/blob/s3"
	"github.com/stackcast/stackcast/internal/bus"
	"github.com/stackcast/stackcast/internal/cache/redis"
	"github.com/stackcast/stackcast/internal/config"
	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/notify"
	"github.com/stackcast/stackcast/internal/store/memory"
	"github.com/stackcast/stackcast/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	Markets           domain.MarketStore
	Positions         domain.PositionStore
	Trades            domain.TradeStore
	Audit             domain.AuditStore
	TradeApplier      domain.TradeApplier
	ResolutionApplier domain.ResolutionApplier

	// Redis-backed extras; nil when Redis is disabled.
	MarketCache domain.MarketCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// SignalBus is Redis pub/sub when enabled, an in-process bus otherwise.
	SignalBus domain.SignalBus

	// BlobWriter is set in full mode only.
	BlobWriter domain.BlobWriter

	Notifier *notify.Notifier
}

// needsS3 returns true for modes that archive trades to object storage.
func needsS3(mode string) bool {
	return mode == "full"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Durable storage ---
	switch cfg.Storage.Backend {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Storage.DSN,
			Host:     cfg.Storage.Host,
			Port:     cfg.Storage.Port,
			Database: cfg.Storage.Database,
			User:     cfg.Storage.User,
			Password: cfg.Storage.Password,
			SSLMode:  cfg.Storage.SSLMode,
			MaxConns: cfg.Storage.PoolMaxConns,
			MinConns: cfg.Storage.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Storage.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Markets = postgres.NewMarketStore(pool)
		deps.Positions = postgres.NewPositionStore(pool)
		deps.Trades = postgres.NewTradeStore(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		applier := postgres.NewApplier(pool)
		deps.TradeApplier = applier
		deps.ResolutionApplier = applier

	default: // memory
		st := memory.New()
		deps.Markets = st
		deps.Positions = st
		deps.Trades = st
		deps.Audit = st
		deps.TradeApplier = st
		deps.ResolutionApplier = st

		if cfg.Market.Seed {
			if err := st.Seed(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: seed markets: %w", err)
			}
			logger.InfoContext(ctx, "seeded demo markets")
		}
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.MarketCache = redis.NewMarketCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	} else {
		deps.SignalBus = bus.NewLocal()
	}

	// --- S3 blob storage ---
	if needsS3(cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) == 0 {
		senders = append(senders, notify.NewLogSender(logger))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
