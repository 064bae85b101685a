package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackcast/stackcast/internal/domain"
)

// Applier implements the atomic multi-entity writes the trading paths need.
// Each apply runs in a single transaction so a partial trade or resolution
// can never be observed.
type Applier struct {
	pool *pgxpool.Pool
}

// NewApplier creates an Applier backed by the given connection pool.
func NewApplier(pool *pgxpool.Pool) *Applier {
	return &Applier{pool: pool}
}

// ApplyTrade persists the updated market, the updated position, and the
// trade record in one transaction.
func (a *Applier) ApplyTrade(ctx context.Context, m domain.Market, p domain.Position, t domain.Trade) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin trade tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const updateMarket = `
		UPDATE markets SET
			yes_bps = $2, no_bps = $3, volume = $4, updated_at = $5
		WHERE id = $1`
	tag, err := tx.Exec(ctx, updateMarket, m.ID, m.YesBps, m.NoBps, m.Volume, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: apply trade market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx, positionUpsert,
		p.MarketID, p.Wallet, p.YesShares, p.NoShares, p.TotalInvested,
		p.CanRedeem, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("postgres: apply trade position %s/%s: %w", p.Wallet, p.MarketID, err)
	}

	if _, err := tx.Exec(ctx, tradeInsert,
		t.ID, t.MarketID, t.Wallet, string(t.Outcome),
		t.AmountUSD, t.Shares, t.PriceBps, t.CreatedAt,
	); err != nil {
		return fmt.Errorf("postgres: apply trade record %s: %w", t.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit trade tx: %w", err)
	}
	return nil
}

// ApplyResolution persists the terminal market state and flips every
// position in the market redeemable, in one transaction.
func (a *Applier) ApplyResolution(ctx context.Context, m domain.Market) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin resolution tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const updateMarket = `
		UPDATE markets SET
			yes_bps = $2, no_bps = $3, status = $4, resolved_outcome = $5,
			updated_at = $6
		WHERE id = $1`
	tag, err := tx.Exec(ctx, updateMarket,
		m.ID, m.YesBps, m.NoBps, string(m.Status), string(m.ResolvedOutcome), m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: apply resolution market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	const flipPositions = `
		UPDATE positions SET can_redeem = TRUE, updated_at = $2
		WHERE market_id = $1`
	if _, err := tx.Exec(ctx, flipPositions, m.ID, m.UpdatedAt); err != nil {
		return fmt.Errorf("postgres: apply resolution positions %s: %w", m.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit resolution tx: %w", err)
	}
	return nil
}

var (
	_ domain.TradeApplier      = (*Applier)(nil)
	_ domain.ResolutionApplier = (*Applier)(nil)
)
