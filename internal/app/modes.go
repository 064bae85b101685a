package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stackcast/stackcast/internal/server"
	"github.com/stackcast/stackcast/internal/server/handler"
	"github.com/stackcast/stackcast/internal/server/ws"
	"github.com/stackcast/stackcast/internal/service"
)

// ServerMode runs the HTTP API and the WebSocket hub.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startAPIServer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the HTTP API plus the trade archiver, which periodically
// moves trades past the retention window into object storage.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startAPIServer(ctx, g, deps)

	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
	archiver := service.NewArchiveService(
		deps.Trades,
		deps.BlobWriter,
		retention,
		a.cfg.Archive.Interval.Duration,
		a.cfg.Archive.BatchSize,
		a.logger,
	)
	g.Go(func() error {
		return archiver.Run(ctx)
	})

	return g.Wait()
}

// startAPIServer builds the services, handlers, and WebSocket hub, then adds
// the server goroutines to the given errgroup. The server shuts down
// gracefully when the context is cancelled.
func (a *App) startAPIServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	marketSvc := service.NewMarketService(
		deps.Markets, deps.ResolutionApplier, deps.MarketCache,
		deps.SignalBus, deps.Audit, deps.Notifier,
		service.MarketDefaults{
			Liquidity: a.cfg.Market.DefaultLiquidity,
			Category:  a.cfg.Market.DefaultCategory,
		},
		a.logger,
	)
	tradeSvc := service.NewTradeService(
		deps.Markets, deps.Positions, deps.Trades, deps.TradeApplier,
		deps.MarketCache, deps.LockManager, deps.SignalBus, deps.Audit,
		deps.Notifier, a.cfg.Market.LargeTradeUSD, a.logger,
	)
	portfolioSvc := service.NewPortfolioService(
		deps.Markets, deps.Positions, deps.Trades, a.logger,
	)

	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:              a.cfg.Server.Port,
			CORSOrigins:       a.cfg.Server.CORSOrigins,
			APIKey:            a.cfg.Server.APIKey,
			APIKeyHash:        a.cfg.Server.APIKeyHash,
			RateLimiter:       deps.RateLimiter,
			RateLimitRequests: a.cfg.Server.RateLimitRequests,
			RateLimitWindow:   a.cfg.Server.RateLimitWindow.Duration,
		},
		server.Handlers{
			Health:    handler.NewHealthHandler(a.logger),
			Markets:   handler.NewMarketHandler(marketSvc, tradeSvc, a.logger),
			Trades:    handler.NewTradeHandler(tradeSvc, a.logger),
			Portfolio: handler.NewPortfolioHandler(portfolioSvc, a.logger),
			Audit:     handler.NewAuditHandler(deps.Audit, a.logger),
		},
		hub,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.Info("HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})
}
