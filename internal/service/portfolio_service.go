package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stackcast/stackcast/internal/domain"
)

// PortfolioService reads wallet positions and trade history. Positions are
// revalued against current market prices at read time so CurrentValue and
// PnL always reflect the live book.
type PortfolioService struct {
	markets   domain.MarketStore
	positions domain.PositionStore
	trades    domain.TradeStore
	logger    *slog.Logger
}

func NewPortfolioService(markets domain.MarketStore, positions domain.PositionStore, trades domain.TradeStore, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{
		markets:   markets,
		positions: positions,
		trades:    trades,
		logger:    logger,
	}
}

// Positions returns every position held by the wallet, revalued at the
// current market prices.
func (s *PortfolioService) Positions(ctx context.Context, wallet string) ([]domain.Position, error) {
	if strings.TrimSpace(wallet) == "" {
		return nil, fmt.Errorf("%w: wallet is required", domain.ErrInvalidInput)
	}

	positions, err := s.positions.ListByWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("portfolio_service: list positions for %q: %w", wallet, err)
	}

	for i := range positions {
		m, err := s.markets.GetByID(ctx, positions[i].MarketID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.WarnContext(ctx, "portfolio_service: position references missing market",
					slog.String("market_id", positions[i].MarketID),
					slog.String("wallet", wallet),
				)
				continue
			}
			return nil, fmt.Errorf("portfolio_service: get market %q: %w", positions[i].MarketID, err)
		}
		positions[i].Revalue(m)
	}
	return positions, nil
}

// Trades returns the wallet's trade history, newest first.
func (s *PortfolioService) Trades(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Trade, error) {
	if strings.TrimSpace(wallet) == "" {
		return nil, fmt.Errorf("%w: wallet is required", domain.ErrInvalidInput)
	}
	trades, err := s.trades.TradesByWallet(ctx, wallet, opts)
	if err != nil {
		return nil, fmt.Errorf("portfolio_service: list trades for %q: %w", wallet, err)
	}
	return trades, nil
}
