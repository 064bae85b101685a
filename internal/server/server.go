// Package server wires HTTP routes, middleware, and the WebSocket hub into
// a single http.Server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/server/handler"
	"github.com/stackcast/stackcast/internal/server/middleware"
	"github.com/stackcast/stackcast/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string

	// APIKey / APIKeyHash gate mutating endpoints; both empty disables auth.
	APIKey     string
	APIKeyHash string

	// RateLimiter is optional. When set, requests are limited to
	// RateLimitRequests per RateLimitWindow per client IP.
	RateLimiter       domain.RateLimiter
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Markets   *handler.MarketHandler
	Trades    *handler.TradeHandler
	Portfolio *handler.PortfolioHandler
	Audit     *handler.AuditHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes on a ServeMux and builds the middleware
// chain around it.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health and metrics stay outside the auth gate.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Market registry.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Markets.ResolveMarket)
	mux.HandleFunc("GET /api/markets/{id}/trades", handlers.Markets.ListMarketTrades)

	// Trading.
	mux.HandleFunc("POST /api/trades", handlers.Trades.ExecuteTrade)
	mux.HandleFunc("POST /api/redeem", handlers.Trades.Redeem)

	// Portfolio.
	mux.HandleFunc("GET /api/portfolio/{wallet}", handlers.Portfolio.GetPortfolio)
	mux.HandleFunc("GET /api/portfolio/{wallet}/trades", handlers.Portfolio.GetPortfolioTrades)

	// Operator audit log.
	if handlers.Audit != nil {
		mux.HandleFunc("GET /api/audit", handlers.Audit.ListAudit)
	}

	// Live updates.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(middleware.AuthConfig{
		APIKey:     cfg.APIKey,
		APIKeyHash: cfg.APIKeyHash,
	})(h)
	if cfg.RateLimiter != nil && cfg.RateLimitRequests > 0 {
		h = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitRequests, cfg.RateLimitWindow)(h)
	}
	h = middleware.Metrics(mux)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start listens for HTTP requests. It blocks until the server errors or is
// shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
