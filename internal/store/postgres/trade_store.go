package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackcast/stackcast/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeColumns = `id, market_id, wallet, outcome, amount_usd, shares, price_bps, created_at`

const tradeInsert = `
	INSERT INTO trades (id, market_id, wallet, outcome, amount_usd, shares, price_bps, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var t domain.Trade
	var outcome string
	err := row.Scan(
		&t.ID, &t.MarketID, &t.Wallet, &outcome,
		&t.AmountUSD, &t.Shares, &t.PriceBps, &t.CreatedAt,
	)
	if err != nil {
		return domain.Trade{}, err
	}
	t.Outcome = domain.Outcome(outcome)
	return t, nil
}

// Insert appends a trade record.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	_, err := s.pool.Exec(ctx, tradeInsert,
		t.ID, t.MarketID, t.Wallet, string(t.Outcome),
		t.AmountUSD, t.Shares, t.PriceBps, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
	}
	return nil
}

// TradesByMarket returns trades for a market, newest first.
func (s *TradeStore) TradesByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE market_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, paginate(query, opts), marketID)
}

// TradesByWallet returns trades by a wallet, newest first.
func (s *TradeStore) TradesByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE wallet = $1 ORDER BY created_at DESC`
	return s.list(ctx, paginate(query, opts), wallet)
}

// ListBetween returns up to limit trades executed after from and before to,
// oldest first. The archiver walks the table in this order.
func (s *TradeStore) ListBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE created_at > $1 AND created_at < $2 ORDER BY created_at ASC LIMIT $3`

	rows, err := s.pool.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades between %s and %s: %w", from, to, err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

// paginate appends LIMIT/OFFSET clauses using literal values from opts.
// Values come from ListOpts ints, never from request strings.
func paginate(query string, opts domain.ListOpts) string {
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}
	return query
}

func (s *TradeStore) list(ctx context.Context, query string, arg any) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()
	return collectTrades(rows)
}

func collectTrades(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades rows: %w", err)
	}
	return trades, nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
