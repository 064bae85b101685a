package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stackcast/stackcast/internal/bus"
	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/service"
	"github.com/stackcast/stackcast/internal/store/memory"
)

type fixture struct {
	store     *memory.Store
	markets   *MarketHandler
	trades    *TradeHandler
	portfolio *PortfolioHandler
	audit     *AuditHandler
	mux       *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memory.New()
	b := bus.NewLocal()

	marketSvc := service.NewMarketService(st, st, nil, b, st, nil, service.MarketDefaults{}, logger)
	tradeSvc := service.NewTradeService(st, st, st, st, nil, nil, b, st, nil, 0, logger)
	portfolioSvc := service.NewPortfolioService(st, st, st, logger)

	f := &fixture{
		store:     st,
		markets:   NewMarketHandler(marketSvc, tradeSvc, logger),
		trades:    NewTradeHandler(tradeSvc, logger),
		portfolio: NewPortfolioHandler(portfolioSvc, logger),
		audit:     NewAuditHandler(st, logger),
		mux:       http.NewServeMux(),
	}
	f.mux.HandleFunc("GET /api/markets", f.markets.ListMarkets)
	f.mux.HandleFunc("POST /api/markets", f.markets.CreateMarket)
	f.mux.HandleFunc("GET /api/markets/{id}", f.markets.GetMarket)
	f.mux.HandleFunc("POST /api/markets/{id}/resolve", f.markets.ResolveMarket)
	f.mux.HandleFunc("GET /api/markets/{id}/trades", f.markets.ListMarketTrades)
	f.mux.HandleFunc("POST /api/trades", f.trades.ExecuteTrade)
	f.mux.HandleFunc("POST /api/redeem", f.trades.Redeem)
	f.mux.HandleFunc("GET /api/portfolio/{wallet}", f.portfolio.GetPortfolio)
	f.mux.HandleFunc("GET /api/portfolio/{wallet}/trades", f.portfolio.GetPortfolioTrades)
	f.mux.HandleFunc("GET /api/audit", f.audit.ListAudit)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func seedOpenMarket(t *testing.T, st *memory.Store, id string, yesBps int64) {
	t.Helper()
	now := time.Now().UTC()
	m := domain.Market{
		ID:        id,
		Question:  "Will the feature ship this quarter?",
		YesBps:    yesBps,
		NoBps:     domain.PriceScaleBps - yesBps,
		Liquidity: 1000,
		EndDate:   now.Add(90 * 24 * time.Hour),
		Oracle:    "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7",
		Status:    domain.MarketStatusOpen,
		Category:  "Tech",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.Create(context.Background(), m); err != nil {
		t.Fatalf("seed market: %v", err)
	}
}

func TestListMarkets(t *testing.T) {
	f := newFixture(t)
	if err := f.store.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/markets?status=all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp listMarketsResponse
	decode(t, rec, &resp)
	if len(resp.Markets) != 6 {
		t.Errorf("markets = %d, want 6", len(resp.Markets))
	}
	if resp.Total != 6 {
		t.Errorf("total = %d, want 6", resp.Total)
	}
	for _, m := range resp.Markets {
		if diff := m.YesPrice + m.NoPrice - 1.0; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("market %s: price sum = %v, want 1", m.ID, m.YesPrice+m.NoPrice)
		}
	}
}

func TestGetMarketNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/markets/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateMarket(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/markets", map[string]any{
		"question": "Will ETH flip BTC?",
		"category": "Crypto",
		"endDate":  time.Now().UTC().Add(365 * 24 * time.Hour).Format(time.RFC3339),
		"oracle":   "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var m marketResponse
	decode(t, rec, &m)
	if m.YesPrice != 0.5 || m.NoPrice != 0.5 {
		t.Errorf("prices = %v/%v, want 0.5/0.5", m.YesPrice, m.NoPrice)
	}
	if m.Liquidity != 1000 {
		t.Errorf("liquidity = %v, want default 1000", m.Liquidity)
	}
}

func TestCreateMarketValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing question", map[string]any{"oracle": "SP1", "endDate": "2027-01-01T00:00:00Z"}},
		{"bad end date", map[string]any{"question": "q", "oracle": "SP1", "endDate": "tomorrow"}},
		{"missing oracle", map[string]any{"question": "q", "endDate": "2027-01-01T00:00:00Z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/markets", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestExecuteTradeMovesPrices(t *testing.T) {
	f := newFixture(t)
	seedOpenMarket(t, f.store, "m1", 5000)

	rec := f.do(t, http.MethodPost, "/api/trades", map[string]any{
		"wallet":   "SP1WALLET",
		"marketId": "m1",
		"outcome":  "yes",
		"amount":   500,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var res tradeResult
	decode(t, rec, &res)
	if res.Market.YesPrice != 0.55 {
		t.Errorf("yes price = %v, want 0.55", res.Market.YesPrice)
	}
	if res.Market.NoPrice != 0.45 {
		t.Errorf("no price = %v, want 0.45", res.Market.NoPrice)
	}
	if res.Market.Volume != 500 {
		t.Errorf("volume = %v, want 500", res.Market.Volume)
	}
	if res.Trade.Price != 0.55 {
		t.Errorf("trade price = %v, want 0.55", res.Trade.Price)
	}
}

func TestExecuteTradeErrorMapping(t *testing.T) {
	f := newFixture(t)
	seedOpenMarket(t, f.store, "open", 5000)
	if err := f.store.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown market", map[string]any{"wallet": "SP1", "marketId": "nope", "outcome": "yes", "amount": 10}, http.StatusNotFound},
		{"zero amount", map[string]any{"wallet": "SP1", "marketId": "open", "outcome": "yes", "amount": 0}, http.StatusBadRequest},
		{"bad outcome", map[string]any{"wallet": "SP1", "marketId": "open", "outcome": "maybe", "amount": 10}, http.StatusBadRequest},
		{"resolved market", map[string]any{"wallet": "SP1", "marketId": "6", "outcome": "yes", "amount": 10}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/trades", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestResolveAndRedeemFlow(t *testing.T) {
	f := newFixture(t)
	seedOpenMarket(t, f.store, "m1", 5000)

	rec := f.do(t, http.MethodPost, "/api/trades", map[string]any{
		"wallet": "SP1WALLET", "marketId": "m1", "outcome": "yes", "amount": 500,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("trade status = %d: %s", rec.Code, rec.Body.String())
	}
	var traded tradeResult
	decode(t, rec, &traded)

	// Redeeming before resolution conflicts.
	rec = f.do(t, http.MethodPost, "/api/redeem", map[string]any{
		"wallet": "SP1WALLET", "marketId": "m1",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("pre-resolution redeem status = %d, want 409", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/markets/m1/resolve", map[string]any{"outcome": "yes"})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d: %s", rec.Code, rec.Body.String())
	}
	var resolved marketResponse
	decode(t, rec, &resolved)
	if resolved.Status != "resolved" || resolved.YesPrice != 1.0 {
		t.Errorf("resolved market = %+v", resolved)
	}

	rec = f.do(t, http.MethodPost, "/api/redeem", map[string]any{
		"wallet": "SP1WALLET", "marketId": "m1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem status = %d: %s", rec.Code, rec.Body.String())
	}
	var redeemed redeemResult
	decode(t, rec, &redeemed)
	if redeemed.Shares != traded.Trade.Shares {
		t.Errorf("redeemed shares = %v, want %v", redeemed.Shares, traded.Trade.Shares)
	}

	// Second redemption conflicts.
	rec = f.do(t, http.MethodPost, "/api/redeem", map[string]any{
		"wallet": "SP1WALLET", "marketId": "m1",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("double redeem status = %d, want 409", rec.Code)
	}
}

func TestRedeemWithoutPosition(t *testing.T) {
	f := newFixture(t)
	if err := f.store.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Market 6 ships resolved. An absent position is a not-found condition,
	// not a conflict.
	rec := f.do(t, http.MethodPost, "/api/redeem", map[string]any{
		"wallet": "SPNOBODY", "marketId": "6",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestListAudit(t *testing.T) {
	f := newFixture(t)
	seedOpenMarket(t, f.store, "m1", 5000)

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/api/trades", map[string]any{
			"wallet": "SP1WALLET", "marketId": "m1", "outcome": "yes", "amount": 50,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("trade status = %d", rec.Code)
		}
	}

	rec := f.do(t, http.MethodGet, "/api/audit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Entries []auditEntryResponse `json:"entries"`
	}
	decode(t, rec, &resp)
	if len(resp.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(resp.Entries))
	}
	for _, e := range resp.Entries {
		if e.Event != "trade_executed" {
			t.Errorf("event = %q, want trade_executed", e.Event)
		}
	}

	// Newest first, and pagination applies.
	if resp.Entries[0].ID < resp.Entries[1].ID {
		t.Errorf("entries not newest first: ids %d, %d", resp.Entries[0].ID, resp.Entries[1].ID)
	}
	rec = f.do(t, http.MethodGet, "/api/audit?limit=1&offset=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("paged status = %d", rec.Code)
	}
	decode(t, rec, &resp)
	if len(resp.Entries) != 1 {
		t.Fatalf("paged entries = %d, want 1", len(resp.Entries))
	}
	if resp.Entries[0].ID != 2 {
		t.Errorf("paged entry id = %d, want 2", resp.Entries[0].ID)
	}
}

func TestGetPortfolio(t *testing.T) {
	f := newFixture(t)
	seedOpenMarket(t, f.store, "m1", 5000)

	rec := f.do(t, http.MethodPost, "/api/trades", map[string]any{
		"wallet": "SP1WALLET", "marketId": "m1", "outcome": "no", "amount": 200,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("trade status = %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/portfolio/SP1WALLET", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("portfolio status = %d", rec.Code)
	}

	var resp struct {
		Wallet    string             `json:"wallet"`
		Positions []positionResponse `json:"positions"`
	}
	decode(t, rec, &resp)
	if len(resp.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(resp.Positions))
	}
	if resp.Positions[0].NoShares == 0 {
		t.Error("expected no-side shares in position")
	}
}

func TestMarketTradeHistory(t *testing.T) {
	f := newFixture(t)
	seedOpenMarket(t, f.store, "m1", 5000)

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/api/trades", map[string]any{
			"wallet": "SP1WALLET", "marketId": "m1", "outcome": "yes", "amount": 50,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("trade status = %d", rec.Code)
		}
	}

	rec := f.do(t, http.MethodGet, "/api/markets/m1/trades", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Trades []tradeResponse `json:"trades"`
	}
	decode(t, rec, &resp)
	if len(resp.Trades) != 2 {
		t.Errorf("trades = %d, want 2", len(resp.Trades))
	}

	rec = f.do(t, http.MethodGet, "/api/markets/missing/trades", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown market status = %d, want 404", rec.Code)
	}
}
