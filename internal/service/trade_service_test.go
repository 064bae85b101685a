package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stackcast/stackcast/internal/bus"
	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTradeFixture(t *testing.T) (*TradeService, *memory.Store) {
	t.Helper()
	st := memory.New()
	return NewTradeService(st, st, st, st, nil, nil, bus.NewLocal(), st, nil, 0, testLogger()), st
}

func openMarket(t *testing.T, st *memory.Store, id string, yesBps int64) domain.Market {
	t.Helper()
	now := time.Now().UTC()
	m := domain.Market{
		ID:        id,
		Question:  "Will it happen?",
		YesBps:    yesBps,
		NoBps:     domain.PriceScaleBps - yesBps,
		Liquidity: 1000,
		EndDate:   now.Add(30 * 24 * time.Hour),
		Oracle:    "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7",
		Status:    domain.MarketStatusOpen,
		Category:  "Other",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.Create(context.Background(), m); err != nil {
		t.Fatalf("create market: %v", err)
	}
	return m
}

func TestExecuteYesNudgesPriceUp(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	res, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet:   "SP1WALLET",
		MarketID: "m1",
		Outcome:  domain.OutcomeYes,
		Amount:   500,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if res.Market.YesBps != 5500 {
		t.Errorf("yes bps = %d, want 5500", res.Market.YesBps)
	}
	if res.Market.NoBps != 4500 {
		t.Errorf("no bps = %d, want 4500", res.Market.NoBps)
	}
	if res.Market.Volume != 500 {
		t.Errorf("volume = %v, want 500", res.Market.Volume)
	}
	wantShares := 500.0 / 0.55
	if math.Abs(res.Trade.Shares-wantShares) > 1e-9 {
		t.Errorf("shares = %v, want %v", res.Trade.Shares, wantShares)
	}
	if res.Position.YesShares != res.Trade.Shares {
		t.Errorf("position yes shares = %v, want %v", res.Position.YesShares, res.Trade.Shares)
	}
	if res.Position.TotalInvested != 500 {
		t.Errorf("total invested = %v, want 500", res.Position.TotalInvested)
	}
}

func TestExecuteNoNudgesPriceDown(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5500)

	res, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet:   "SP1WALLET",
		MarketID: "m1",
		Outcome:  domain.OutcomeNo,
		Amount:   2000,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	// 2000 USD wants a 2000 bps nudge but is capped at 1500.
	if res.Market.YesBps != 4000 {
		t.Errorf("yes bps = %d, want 4000", res.Market.YesBps)
	}
	if res.Market.NoBps != 6000 {
		t.Errorf("no bps = %d, want 6000", res.Market.NoBps)
	}
	if res.Trade.PriceBps != 6000 {
		t.Errorf("trade price bps = %d, want 6000", res.Trade.PriceBps)
	}
	wantShares := 2000.0 / 0.60
	if math.Abs(res.Trade.Shares-wantShares) > 1e-9 {
		t.Errorf("shares = %v, want %v", res.Trade.Shares, wantShares)
	}
}

func TestExecuteNudgeCap(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	res, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet:   "SP1WALLET",
		MarketID: "m1",
		Outcome:  domain.OutcomeYes,
		Amount:   10000,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Market.YesBps != 6500 {
		t.Errorf("yes bps = %d, want 6500 (nudge capped at 1500)", res.Market.YesBps)
	}
}

func TestExecuteNudgeCapBeyondInt64Range(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	// A stake larger than int64 can hold must still cap at the max nudge
	// while growing volume and issuing shares.
	const amount = 1e19
	res, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet:   "SP1WALLET",
		MarketID: "m1",
		Outcome:  domain.OutcomeYes,
		Amount:   amount,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Market.YesBps != 6500 {
		t.Errorf("yes bps = %d, want 6500 (nudge capped at 1500)", res.Market.YesBps)
	}
	if res.Market.Volume != amount {
		t.Errorf("volume = %v, want %v", res.Market.Volume, amount)
	}
	wantShares := amount / 0.65
	if math.Abs(res.Trade.Shares-wantShares) > wantShares*1e-12 {
		t.Errorf("shares = %v, want %v", res.Trade.Shares, wantShares)
	}
}

func TestExecuteClampsNearBounds(t *testing.T) {
	tests := []struct {
		name    string
		yesBps  int64
		outcome domain.Outcome
		amount  float64
		wantYes int64
	}{
		{"clamp high", 9500, domain.OutcomeYes, 5000, 9800},
		{"clamp low", 500, domain.OutcomeNo, 5000, 200},
		{"exact top stays", 9800, domain.OutcomeYes, 100, 9800},
		{"exact bottom stays", 200, domain.OutcomeNo, 100, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTradeFixture(t)
			ctx := context.Background()
			openMarket(t, st, "m1", tt.yesBps)

			res, err := svc.Execute(ctx, domain.TradeRequest{
				Wallet:   "SP1WALLET",
				MarketID: "m1",
				Outcome:  tt.outcome,
				Amount:   tt.amount,
			})
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if res.Market.YesBps != tt.wantYes {
				t.Errorf("yes bps = %d, want %d", res.Market.YesBps, tt.wantYes)
			}
			if res.Market.YesBps+res.Market.NoBps != domain.PriceScaleBps {
				t.Errorf("price sum = %d, want %d", res.Market.YesBps+res.Market.NoBps, domain.PriceScaleBps)
			}
		})
	}
}

func TestExecutePriceSumInvariant(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	amounts := []float64{37, 512, 9999, 1, 250.75, 4800, 66.6}
	outcome := domain.OutcomeYes
	for _, amt := range amounts {
		res, err := svc.Execute(ctx, domain.TradeRequest{
			Wallet:   "SP1WALLET",
			MarketID: "m1",
			Outcome:  outcome,
			Amount:   amt,
		})
		if err != nil {
			t.Fatalf("execute %v: %v", amt, err)
		}
		if res.Market.YesBps+res.Market.NoBps != domain.PriceScaleBps {
			t.Fatalf("after %v: price sum = %d", amt, res.Market.YesBps+res.Market.NoBps)
		}
		if res.Market.YesBps%domain.PriceStepBps != 0 {
			t.Fatalf("after %v: yes bps %d off the price grid", amt, res.Market.YesBps)
		}
		if outcome == domain.OutcomeYes {
			outcome = domain.OutcomeNo
		} else {
			outcome = domain.OutcomeYes
		}
	}
}

func TestExecuteVolumeAccumulates(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	for _, amt := range []float64{100, 250, 50} {
		if _, err := svc.Execute(ctx, domain.TradeRequest{
			Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: amt,
		}); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}
	m, err := st.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Volume != 400 {
		t.Errorf("volume = %v, want 400", m.Volume)
	}
}

func TestExecuteRejectsBadInput(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	tests := []struct {
		name    string
		req     domain.TradeRequest
		wantErr error
	}{
		{"zero amount", domain.TradeRequest{Wallet: "SP1", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 0}, domain.ErrInvalidAmount},
		{"negative amount", domain.TradeRequest{Wallet: "SP1", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: -5}, domain.ErrInvalidAmount},
		{"nan amount", domain.TradeRequest{Wallet: "SP1", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: math.NaN()}, domain.ErrInvalidAmount},
		{"inf amount", domain.TradeRequest{Wallet: "SP1", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: math.Inf(1)}, domain.ErrInvalidAmount},
		{"bad outcome", domain.TradeRequest{Wallet: "SP1", MarketID: "m1", Outcome: "maybe", Amount: 10}, domain.ErrInvalidInput},
		{"empty wallet", domain.TradeRequest{Wallet: "  ", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 10}, domain.ErrInvalidInput},
		{"missing market", domain.TradeRequest{Wallet: "SP1", MarketID: "nope", Outcome: domain.OutcomeYes, Amount: 10}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Execute(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No rejected request may have touched the market.
	m, err := st.GetByID(ctx, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Volume != 0 || m.YesBps != 5000 {
		t.Errorf("market mutated by rejected trades: volume=%v yes=%d", m.Volume, m.YesBps)
	}
}

func TestExecuteRejectsResolvedMarket(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	m := openMarket(t, st, "m1", 5000)
	m.Status = domain.MarketStatusResolved
	m.ResolvedOutcome = domain.OutcomeYes
	m.YesBps = domain.PriceScaleBps
	m.NoBps = 0
	if err := st.Update(ctx, m); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 100,
	})
	if !errors.Is(err, domain.ErrMarketNotTradable) {
		t.Fatalf("err = %v, want ErrMarketNotTradable", err)
	}

	got, _ := st.GetByID(ctx, "m1")
	if got.Volume != 0 {
		t.Errorf("resolved market volume mutated: %v", got.Volume)
	}
}

func TestExecuteAccumulatesPosition(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	r1, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 300,
	})
	if err != nil {
		t.Fatalf("first trade: %v", err)
	}
	r2, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeNo, Amount: 200,
	})
	if err != nil {
		t.Fatalf("second trade: %v", err)
	}

	positions, err := st.ListByWallet(ctx, "SP1WALLET")
	if err != nil {
		t.Fatalf("list positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want exactly 1", len(positions))
	}
	p := positions[0]
	if p.YesShares != r1.Trade.Shares {
		t.Errorf("yes shares = %v, want %v", p.YesShares, r1.Trade.Shares)
	}
	if p.NoShares != r2.Trade.Shares {
		t.Errorf("no shares = %v, want %v", p.NoShares, r2.Trade.Shares)
	}
	if p.TotalInvested != 500 {
		t.Errorf("total invested = %v, want 500", p.TotalInvested)
	}
}

func TestExecuteRecordsTradeHistory(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	for i := 0; i < 3; i++ {
		if _, err := svc.Execute(ctx, domain.TradeRequest{
			Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 100,
		}); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}
	trades, err := svc.ListByMarket(ctx, "m1", domain.ListOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trades) != 3 {
		t.Errorf("trades = %d, want 3", len(trades))
	}
}

func resolveMarket(t *testing.T, st *memory.Store, id string, outcome domain.Outcome) {
	t.Helper()
	ctx := context.Background()
	m, err := st.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get market: %v", err)
	}
	m.Status = domain.MarketStatusResolved
	m.ResolvedOutcome = outcome
	if outcome == domain.OutcomeYes {
		m.YesBps, m.NoBps = domain.PriceScaleBps, 0
	} else {
		m.YesBps, m.NoBps = 0, domain.PriceScaleBps
	}
	if err := st.ApplyResolution(ctx, m); err != nil {
		t.Fatalf("apply resolution: %v", err)
	}
}

func TestRedeemPaysWinningShares(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	res, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 500,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	resolveMarket(t, st, "m1", domain.OutcomeYes)

	out, err := svc.Redeem(ctx, "SP1WALLET", "m1")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if out.Outcome != domain.OutcomeYes {
		t.Errorf("outcome = %s, want yes", out.Outcome)
	}
	if math.Abs(out.PayoutUSD-res.Trade.Shares) > 1e-9 {
		t.Errorf("payout = %v, want %v (one dollar per winning share)", out.PayoutUSD, res.Trade.Shares)
	}
}

func TestRedeemLosingSidePaysZero(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	if _, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 500,
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	resolveMarket(t, st, "m1", domain.OutcomeNo)

	out, err := svc.Redeem(ctx, "SP1WALLET", "m1")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if out.PayoutUSD != 0 {
		t.Errorf("payout = %v, want 0", out.PayoutUSD)
	}
}

func TestRedeemRejectsUnresolvedMarket(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)
	if _, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 100,
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}

	_, err := svc.Redeem(ctx, "SP1WALLET", "m1")
	if !errors.Is(err, domain.ErrMarketNotResolved) {
		t.Fatalf("err = %v, want ErrMarketNotResolved", err)
	}
}

func TestRedeemRejectsMissingPosition(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)
	resolveMarket(t, st, "m1", domain.OutcomeYes)

	_, err := svc.Redeem(ctx, "SPNOBODY", "m1")
	if !errors.Is(err, domain.ErrNoPosition) {
		t.Fatalf("err = %v, want ErrNoPosition", err)
	}
}

func TestRedeemRejectsDoubleRedemption(t *testing.T) {
	svc, st := newTradeFixture(t)
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)
	if _, err := svc.Execute(ctx, domain.TradeRequest{
		Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 100,
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	resolveMarket(t, st, "m1", domain.OutcomeYes)

	if _, err := svc.Redeem(ctx, "SP1WALLET", "m1"); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	_, err := svc.Redeem(ctx, "SP1WALLET", "m1")
	if !errors.Is(err, domain.ErrAlreadyRedeemed) {
		t.Fatalf("second redeem err = %v, want ErrAlreadyRedeemed", err)
	}
}

func TestRedeemUnknownMarket(t *testing.T) {
	svc, _ := newTradeFixture(t)
	_, err := svc.Redeem(context.Background(), "SP1WALLET", "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
