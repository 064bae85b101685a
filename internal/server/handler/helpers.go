package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/stackcast/stackcast/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors onto HTTP status codes and
// writes the response. Unknown errors become a generic 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoPosition):
		writeError(w, http.StatusNotFound, "no position in this market")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "amount must be a positive number")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMarketNotTradable):
		writeError(w, http.StatusConflict, "market is not open for trading")
	case errors.Is(err, domain.ErrMarketNotResolved):
		writeError(w, http.StatusConflict, "market is not resolved")
	case errors.Is(err, domain.ErrMarketResolved):
		writeError(w, http.StatusConflict, "market is already resolved")
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		writeError(w, http.StatusConflict, "position already redeemed")
	case errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusServiceUnavailable, "market is busy, retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseListOpts extracts pagination from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{Limit: limit, Offset: offset}
}

// pathParam extracts a named path parameter (Go 1.22+ routing).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// round2 rounds a dollar figure to cents for JSON output.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// marketResponse is the wire shape of a market. Prices go out as
// two-decimal floats; the internal representation stays fixed-point.
type marketResponse struct {
	ID              string  `json:"id"`
	Question        string  `json:"question"`
	YesPrice        float64 `json:"yesPrice"`
	NoPrice         float64 `json:"noPrice"`
	Liquidity       float64 `json:"liquidity"`
	Volume          float64 `json:"volume"`
	EndDate         string  `json:"endDate"`
	Oracle          string  `json:"oracle"`
	Status          string  `json:"status"`
	ResolvedOutcome string  `json:"resolvedOutcome,omitempty"`
	Category        string  `json:"category"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

func toMarketResponse(m domain.Market) marketResponse {
	return marketResponse{
		ID:              m.ID,
		Question:        m.Question,
		YesPrice:        m.YesPrice(),
		NoPrice:         m.NoPrice(),
		Liquidity:       m.Liquidity,
		Volume:          round2(m.Volume),
		EndDate:         m.EndDate.Format(time.RFC3339),
		Oracle:          m.Oracle,
		Status:          string(m.Status),
		ResolvedOutcome: string(m.ResolvedOutcome),
		Category:        m.Category,
		CreatedAt:       m.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       m.UpdatedAt.Format(time.RFC3339),
	}
}

func toMarketResponses(markets []domain.Market) []marketResponse {
	out := make([]marketResponse, 0, len(markets))
	for _, m := range markets {
		out = append(out, toMarketResponse(m))
	}
	return out
}

// positionResponse is the wire shape of a position.
type positionResponse struct {
	MarketID      string  `json:"marketId"`
	Wallet        string  `json:"wallet"`
	YesShares     float64 `json:"yesShares"`
	NoShares      float64 `json:"noShares"`
	TotalInvested float64 `json:"totalInvested"`
	CurrentValue  float64 `json:"currentValue"`
	PnL           float64 `json:"pnl"`
	CanRedeem     bool    `json:"canRedeem"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

func toPositionResponse(p domain.Position) positionResponse {
	return positionResponse{
		MarketID:      p.MarketID,
		Wallet:        p.Wallet,
		YesShares:     p.YesShares,
		NoShares:      p.NoShares,
		TotalInvested: round2(p.TotalInvested),
		CurrentValue:  round2(p.CurrentValue),
		PnL:           round2(p.PnL),
		CanRedeem:     p.CanRedeem,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

// tradeResponse is the wire shape of an executed trade.
type tradeResponse struct {
	ID        string  `json:"id"`
	MarketID  string  `json:"marketId"`
	Wallet    string  `json:"wallet"`
	Outcome   string  `json:"outcome"`
	Amount    float64 `json:"amount"`
	Shares    float64 `json:"shares"`
	Price     float64 `json:"price"`
	CreatedAt string  `json:"createdAt"`
}

func toTradeResponse(t domain.Trade) tradeResponse {
	return tradeResponse{
		ID:        t.ID,
		MarketID:  t.MarketID,
		Wallet:    t.Wallet,
		Outcome:   string(t.Outcome),
		Amount:    round2(t.AmountUSD),
		Shares:    t.Shares,
		Price:     float64(t.PriceBps) / float64(domain.PriceScaleBps),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

func toTradeResponses(trades []domain.Trade) []tradeResponse {
	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, toTradeResponse(t))
	}
	return out
}
