package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stackcast/stackcast/internal/bus"
	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/store/memory"
)

func TestPortfolioRevaluesAtCurrentPrices(t *testing.T) {
	st := memory.New()
	trades := NewTradeService(st, st, st, st, nil, nil, bus.NewLocal(), st, nil, 0, testLogger())
	portfolio := NewPortfolioService(st, st, st, testLogger())
	ctx := context.Background()
	openMarket(t, st, "m1", 5000)

	res, err := trades.Execute(ctx, domain.TradeRequest{
		Wallet: "SP1WALLET", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 500,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	// A later trade by someone else moves the price; the first wallet's
	// position value must follow it.
	if _, err := trades.Execute(ctx, domain.TradeRequest{
		Wallet: "SP2OTHER", MarketID: "m1", Outcome: domain.OutcomeYes, Amount: 1000,
	}); err != nil {
		t.Fatalf("second execute: %v", err)
	}

	positions, err := portfolio.Positions(ctx, "SP1WALLET")
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(positions))
	}
	m, _ := st.GetByID(ctx, "m1")
	want := res.Trade.Shares * m.YesPrice()
	if math.Abs(positions[0].CurrentValue-want) > 1e-9 {
		t.Errorf("current value = %v, want %v", positions[0].CurrentValue, want)
	}
	if math.Abs(positions[0].PnL-(want-500)) > 1e-9 {
		t.Errorf("pnl = %v, want %v", positions[0].PnL, want-500)
	}
}

func TestPortfolioEmptyWallet(t *testing.T) {
	st := memory.New()
	portfolio := NewPortfolioService(st, st, st, testLogger())

	positions, err := portfolio.Positions(context.Background(), "SPNOBODY")
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("positions = %d, want 0", len(positions))
	}
}

func TestPortfolioRequiresWallet(t *testing.T) {
	st := memory.New()
	portfolio := NewPortfolioService(st, st, st, testLogger())

	if _, err := portfolio.Positions(context.Background(), ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("positions err = %v, want ErrInvalidInput", err)
	}
	if _, err := portfolio.Trades(context.Background(), "", domain.ListOpts{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("trades err = %v, want ErrInvalidInput", err)
	}
}
