package domain

import "time"

// Position is a wallet's accumulated stake and shares in one market. There is
// at most one position per (wallet, market) pair; repeated trades accumulate
// into it.
type Position struct {
	MarketID      string
	Wallet        string
	YesShares     float64
	NoShares      float64
	TotalInvested float64
	CurrentValue  float64
	PnL           float64
	CanRedeem     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Revalue recomputes CurrentValue and PnL against the given market prices.
func (p *Position) Revalue(m Market) {
	p.CurrentValue = p.YesShares*m.YesPrice() + p.NoShares*m.NoPrice()
	p.PnL = p.CurrentValue - p.TotalInvested
}

// WinningShares returns the share count on the resolved side of the market.
// It returns 0 when the market has no resolved outcome.
func (p Position) WinningShares(m Market) float64 {
	switch m.ResolvedOutcome {
	case OutcomeYes:
		return p.YesShares
	case OutcomeNo:
		return p.NoShares
	default:
		return 0
	}
}
