package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/stackcast/stackcast/internal/domain"
)

// PortfolioService defines what the portfolio handler needs from the
// service layer.
type PortfolioService interface {
	Positions(ctx context.Context, wallet string) ([]domain.Position, error)
	Trades(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Trade, error)
}

// PortfolioHandler serves wallet portfolio endpoints.
type PortfolioHandler struct {
	portfolio PortfolioService
	logger    *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler.
func NewPortfolioHandler(portfolio PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		logger:    logger,
	}
}

// GetPortfolio returns every position held by a wallet, revalued at
// current prices.
// GET /api/portfolio/{wallet}
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	wallet := pathParam(r, "wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "missing wallet")
		return
	}

	positions, err := h.portfolio.Positions(r.Context(), wallet)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]positionResponse, 0, len(positions))
	var totalValue, totalInvested float64
	for _, p := range positions {
		out = append(out, toPositionResponse(p))
		totalValue += p.CurrentValue
		totalInvested += p.TotalInvested
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"wallet":        wallet,
		"positions":     out,
		"totalValue":    round2(totalValue),
		"totalInvested": round2(totalInvested),
		"totalPnl":      round2(totalValue - totalInvested),
	})
}

// GetPortfolioTrades returns a wallet's trade history, newest first.
// GET /api/portfolio/{wallet}/trades?limit=50&offset=0
func (h *PortfolioHandler) GetPortfolioTrades(w http.ResponseWriter, r *http.Request) {
	wallet := pathParam(r, "wallet")
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "missing wallet")
		return
	}

	trades, err := h.portfolio.Trades(r.Context(), wallet, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"wallet": wallet,
		"trades": toTradeResponses(trades),
	})
}
