package domain

import "time"

// Trade is the record of a single executed buy order.
type Trade struct {
	ID        string
	MarketID  string
	Wallet    string
	Outcome   Outcome
	AmountUSD float64
	Shares    float64
	// PriceBps is the post-trade price of the purchased side, i.e. the
	// price the shares were issued at.
	PriceBps  int64
	CreatedAt time.Time
}

// TradeRequest carries the inputs of a trade submission.
type TradeRequest struct {
	Wallet   string
	MarketID string
	Outcome  Outcome
	Amount   float64
}

// TradeResult bundles the post-trade market and position snapshots returned
// to the caller.
type TradeResult struct {
	Market   Market
	Position Position
	Trade    Trade
}

// RedeemResult acknowledges a redemption. Winning shares pay out at $1 each;
// the losing side pays zero.
type RedeemResult struct {
	MarketID  string
	Wallet    string
	Outcome   Outcome
	Shares    float64
	PayoutUSD float64
}
