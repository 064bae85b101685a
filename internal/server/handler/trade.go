package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/stackcast/stackcast/internal/domain"
)

// TradeService defines what the trade handler needs from the service layer.
type TradeService interface {
	Execute(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error)
	Redeem(ctx context.Context, wallet, marketID string) (domain.RedeemResult, error)
}

// TradeHandler serves trade execution and redemption endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logger,
	}
}

// tradeRequest is the JSON body for trade execution.
type tradeRequest struct {
	Wallet   string  `json:"wallet"`
	MarketID string  `json:"marketId"`
	Outcome  string  `json:"outcome"`
	Amount   float64 `json:"amount"`
}

// tradeResult bundles the post-trade market, position, and trade record.
type tradeResult struct {
	Market   marketResponse   `json:"market"`
	Position positionResponse `json:"position"`
	Trade    tradeResponse    `json:"trade"`
}

// ExecuteTrade runs a buy order against a market.
// POST /api/trades
func (h *TradeHandler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.trades.Execute(r.Context(), domain.TradeRequest{
		Wallet:   req.Wallet,
		MarketID: req.MarketID,
		Outcome:  domain.Outcome(req.Outcome),
		Amount:   req.Amount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tradeResult{
		Market:   toMarketResponse(res.Market),
		Position: toPositionResponse(res.Position),
		Trade:    toTradeResponse(res.Trade),
	})
}

// redeemRequest is the JSON body for redemption.
type redeemRequest struct {
	Wallet   string `json:"wallet"`
	MarketID string `json:"marketId"`
}

// redeemResult is the redemption response body.
type redeemResult struct {
	MarketID string  `json:"marketId"`
	Wallet   string  `json:"wallet"`
	Outcome  string  `json:"outcome"`
	Shares   float64 `json:"shares"`
	Payout   float64 `json:"payout"`
}

// Redeem settles a wallet's position in a resolved market.
// POST /api/redeem
func (h *TradeHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MarketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	res, err := h.trades.Redeem(r.Context(), req.Wallet, req.MarketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, redeemResult{
		MarketID: res.MarketID,
		Wallet:   res.Wallet,
		Outcome:  string(res.Outcome),
		Shares:   res.Shares,
		Payout:   round2(res.PayoutUSD),
	})
}
