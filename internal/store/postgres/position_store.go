package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackcast/stackcast/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL. Only the
// ledger fields are persisted; valuation fields are recomputed at read time
// by the caller against current market prices.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by the given connection
// pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionColumns = `market_id, wallet, yes_shares, no_shares,
	total_invested, can_redeem, created_at, updated_at`

const positionUpsert = `
	INSERT INTO positions (
		market_id, wallet, yes_shares, no_shares, total_invested,
		can_redeem, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (market_id, wallet) DO UPDATE SET
		yes_shares     = EXCLUDED.yes_shares,
		no_shares      = EXCLUDED.no_shares,
		total_invested = EXCLUDED.total_invested,
		can_redeem     = EXCLUDED.can_redeem,
		updated_at     = EXCLUDED.updated_at`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	err := row.Scan(
		&p.MarketID, &p.Wallet, &p.YesShares, &p.NoShares,
		&p.TotalInvested, &p.CanRedeem, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Position{}, err
	}
	return p, nil
}

// Get returns the wallet's position in a market, or domain.ErrNotFound.
func (s *PositionStore) Get(ctx context.Context, wallet, marketID string) (domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE wallet = $1 AND market_id = $2`

	p, err := scanPosition(s.pool.QueryRow(ctx, query, wallet, marketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s/%s: %w", wallet, marketID, err)
	}
	return p, nil
}

// Upsert inserts or replaces a position.
func (s *PositionStore) Upsert(ctx context.Context, p domain.Position) error {
	_, err := s.pool.Exec(ctx, positionUpsert,
		p.MarketID, p.Wallet, p.YesShares, p.NoShares, p.TotalInvested,
		p.CanRedeem, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s/%s: %w", p.Wallet, p.MarketID, err)
	}
	return nil
}

// ListByWallet returns every position held by the wallet, oldest first.
func (s *PositionStore) ListByWallet(ctx context.Context, wallet string) ([]domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE wallet = $1 ORDER BY created_at ASC`
	return s.list(ctx, query, wallet)
}

// ListByMarket returns every position in a market, ordered by wallet.
func (s *PositionStore) ListByMarket(ctx context.Context, marketID string) ([]domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE market_id = $1 ORDER BY wallet ASC`
	return s.list(ctx, query, marketID)
}

func (s *PositionStore) list(ctx context.Context, query string, arg any) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", err)
	}
	return positions, nil
}

var _ domain.PositionStore = (*PositionStore)(nil)
