package domain

import (
	"context"
	"time"
)

// MarketFilter narrows and orders market listings.
type MarketFilter struct {
	// Status matches markets with the given status. Empty or "all" matches
	// every status.
	Status string
	// Search keeps markets whose question contains the substring,
	// case-insensitively. Empty means no filtering.
	Search string
	// Sort orders results: "liquidity", "volume", or "newest" (all
	// descending). Unrecognized keys leave creation order.
	Sort string
}

// StatusAll is the sentinel filter value matching every market status.
const StatusAll = "all"

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore is the authoritative store of markets. Reads return value
// snapshots; callers mutate registry state only through explicit writes.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	List(ctx context.Context, f MarketFilter) ([]Market, error)
	Update(ctx context.Context, m Market) error
	Count(ctx context.Context) (int64, error)
}

// PositionStore persists per-wallet position ledgers.
type PositionStore interface {
	Get(ctx context.Context, wallet, marketID string) (Position, error)
	Upsert(ctx context.Context, p Position) error
	ListByWallet(ctx context.Context, wallet string) ([]Position, error)
	ListByMarket(ctx context.Context, marketID string) ([]Position, error)
}

// TradeStore persists executed trade records.
type TradeStore interface {
	Insert(ctx context.Context, t Trade) error
	TradesByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Trade, error)
	TradesByWallet(ctx context.Context, wallet string, opts ListOpts) ([]Trade, error)

	// ListBetween returns up to limit trades executed strictly after from
	// and strictly before to, oldest first. The archiver uses it to drain
	// history in batches, advancing from as its high-water mark.
	ListBetween(ctx context.Context, from, to time.Time, limit int) ([]Trade, error)
}

// TradeApplier atomically persists the outcome of an executed trade: the
// updated market, the updated position, and the trade record, all or nothing.
type TradeApplier interface {
	ApplyTrade(ctx context.Context, m Market, p Position, t Trade) error
}

// ResolutionApplier atomically persists a market resolution: the terminal
// market state plus the redeemable flag on every position in the market.
type ResolutionApplier interface {
	ApplyResolution(ctx context.Context, m Market) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	Recent(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
