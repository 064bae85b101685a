package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/service"
)

// MarketService defines what the market handler needs from the service
// layer. Declared locally so the handler does not depend on the concrete
// service type.
type MarketService interface {
	Create(ctx context.Context, input service.CreateMarketInput) (domain.Market, error)
	Get(ctx context.Context, id string) (domain.Market, error)
	List(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error)
	Count(ctx context.Context) (int64, error)
	Resolve(ctx context.Context, id string, outcome domain.Outcome) (domain.Market, error)
}

// TradeHistory provides the per-market trade listing.
type TradeHistory interface {
	ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	trades  TradeHistory
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(markets MarketService, trades TradeHistory, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		trades:  trades,
		logger:  logger,
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []marketResponse `json:"markets"`
	Total   int64            `json:"total"`
}

// ListMarkets returns markets filtered and sorted per query parameters.
// GET /api/markets?status=open&sort=volume&search=btc
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.MarketFilter{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Sort:   q.Get("sort"),
	}

	markets, err := h.markets.List(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	total, err := h.markets.Count(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: count markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to count markets")
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: toMarketResponses(markets),
		Total:   total,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketResponse(market))
}

// createMarketRequest is the JSON body for market creation.
type createMarketRequest struct {
	Question  string  `json:"question"`
	Category  string  `json:"category"`
	EndDate   string  `json:"endDate"`
	Oracle    string  `json:"oracle"`
	Liquidity float64 `json:"liquidity"`
}

// CreateMarket creates a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var endDate time.Time
	if req.EndDate != "" {
		var err error
		endDate, err = time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "endDate must be RFC 3339")
			return
		}
	}

	market, err := h.markets.Create(r.Context(), service.CreateMarketInput{
		Question:  req.Question,
		Category:  req.Category,
		EndDate:   endDate,
		Oracle:    req.Oracle,
		Liquidity: req.Liquidity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMarketResponse(market))
}

// resolveMarketRequest is the JSON body for market resolution.
type resolveMarketRequest struct {
	Outcome string `json:"outcome"`
}

// ResolveMarket settles a market to a final outcome.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req resolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	market, err := h.markets.Resolve(r.Context(), id, domain.Outcome(req.Outcome))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketResponse(market))
}

// ListMarketTrades returns a market's trade history, newest first.
// GET /api/markets/{id}/trades?limit=50&offset=0
func (h *MarketHandler) ListMarketTrades(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	// 404 for unknown markets rather than an empty list.
	if _, err := h.markets.Get(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}

	trades, err := h.trades.ListByMarket(r.Context(), id, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list market trades failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades": toTradeResponses(trades),
	})
}
