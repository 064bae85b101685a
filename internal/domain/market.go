package domain

import "time"

// MarketStatus represents the lifecycle state of a market. The state machine
// is open -> pending -> resolved, with resolved terminal.
type MarketStatus string

const (
	MarketStatusOpen     MarketStatus = "open"
	MarketStatusPending  MarketStatus = "pending"
	MarketStatusResolved MarketStatus = "resolved"
)

// Outcome is one of the two sides of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Valid reports whether o is one of the two recognized outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeYes || o == OutcomeNo
}

// Prices are held as integer basis points so the two sides always sum to
// exactly PriceScaleBps. Floating-point fractions exist only at the API
// boundary.
const (
	// PriceScaleBps is the fixed total the two sides sum to (1.00 = 10000 bps).
	PriceScaleBps int64 = 10000

	// PriceStepBps is the display grid: prices are quoted to two decimals,
	// i.e. multiples of 100 bps.
	PriceStepBps int64 = 100

	// MaxNudgeBps caps the price impact of a single trade at 15 percentage
	// points. One staked dollar moves the price one basis point below the cap.
	MaxNudgeBps int64 = 1500

	// MinYesBps and MaxYesBps clamp the yes price away from 0 and 1 so an
	// open market never quotes a side at zero.
	MinYesBps int64 = 200
	MaxYesBps int64 = 9800

	// ShareFloorPrice is the minimum price used when converting a stake to
	// shares, preventing division blow-up near the clamps.
	ShareFloorPrice = 0.01
)

// Market is a binary-outcome proposition traders take positions on.
type Market struct {
	ID              string
	Question        string
	YesBps          int64
	NoBps           int64
	Liquidity       float64
	Volume          float64
	EndDate         time.Time
	Oracle          string
	Status          MarketStatus
	ResolvedOutcome Outcome // empty unless Status is resolved
	Category        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// YesPrice returns the yes side as a fraction in [0,1].
func (m Market) YesPrice() float64 {
	return float64(m.YesBps) / float64(PriceScaleBps)
}

// NoPrice returns the no side as a fraction in [0,1].
func (m Market) NoPrice() float64 {
	return float64(m.NoBps) / float64(PriceScaleBps)
}

// OutcomePrice returns the price of the given side as a fraction.
func (m Market) OutcomePrice(o Outcome) float64 {
	if o == OutcomeYes {
		return m.YesPrice()
	}
	return m.NoPrice()
}

// Tradable reports whether the market accepts trades.
func (m Market) Tradable() bool {
	return m.Status == MarketStatusOpen
}

// SnapBps rounds bps to the nearest PriceStepBps multiple, half up. Quoted
// prices stay on the two-decimal grid, which keeps yes + no == PriceScaleBps
// exact after every update.
func SnapBps(bps int64) int64 {
	half := PriceStepBps / 2
	return (bps + half) / PriceStepBps * PriceStepBps
}

// ClampYesBps bounds a yes price to the tradable range.
func ClampYesBps(bps int64) int64 {
	if bps < MinYesBps {
		return MinYesBps
	}
	if bps > MaxYesBps {
		return MaxYesBps
	}
	return bps
}

// NudgeBps converts a stake in USD to the bounded price adjustment it causes.
// The nudge scales linearly with the stake (one dollar per basis point) and
// is capped at MaxNudgeBps. The cap is applied while still in float so that
// stakes beyond int64 range never hit an overflowing conversion.
func NudgeBps(amountUSD float64) int64 {
	if amountUSD <= 0 {
		return 0
	}
	if amountUSD >= float64(MaxNudgeBps) {
		return MaxNudgeBps
	}
	return int64(amountUSD)
}
