package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackcast/stackcast/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketColumns = `id, question, yes_bps, no_bps, liquidity, volume,
	end_date, oracle, status, resolved_outcome, category, created_at, updated_at`

// likeEscaper neutralizes LIKE metacharacters so user search terms match
// literally instead of acting as wildcards.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Create inserts a new market. Inserting a duplicate ID is an error.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, question, yes_bps, no_bps, liquidity, volume,
			end_date, oracle, status, resolved_outcome, category,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Question, m.YesBps, m.NoBps, m.Liquidity, m.Volume,
		m.EndDate, m.Oracle, string(m.Status), string(m.ResolvedOutcome), m.Category,
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var status, resolved string
	err := row.Scan(
		&m.ID, &m.Question, &m.YesBps, &m.NoBps, &m.Liquidity, &m.Volume,
		&m.EndDate, &m.Oracle, &status, &resolved, &m.Category,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Status = domain.MarketStatus(status)
	m.ResolvedOutcome = domain.Outcome(resolved)
	return m, nil
}

// GetByID returns the market with the given ID, or domain.ErrNotFound.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE id = $1`

	m, err := scanMarket(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns markets matching the filter. Unrecognized sort keys fall back
// to insertion order, which for this store is creation time ascending.
func (s *MarketStore) List(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.Status != "" && f.Status != domain.StatusAll {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, f.Status)
		argIdx++
	}
	if f.Search != "" {
		query += fmt.Sprintf(" AND question ILIKE $%d ESCAPE '\\'", argIdx)
		args = append(args, "%"+escapeLike(f.Search)+"%")
		argIdx++
	}

	switch f.Sort {
	case "liquidity":
		query += " ORDER BY liquidity DESC"
	case "volume":
		query += " ORDER BY volume DESC"
	case "newest":
		query += " ORDER BY end_date DESC"
	default:
		query += " ORDER BY created_at ASC"
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// Update overwrites an existing market. It returns domain.ErrNotFound when
// the market does not exist.
func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			question = $2, yes_bps = $3, no_bps = $4, liquidity = $5,
			volume = $6, end_date = $7, oracle = $8, status = $9,
			resolved_outcome = $10, category = $11, updated_at = $12
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		m.ID, m.Question, m.YesBps, m.NoBps, m.Liquidity,
		m.Volume, m.EndDate, m.Oracle, string(m.Status),
		string(m.ResolvedOutcome), m.Category, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update market %s: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

var _ domain.MarketStore = (*MarketStore)(nil)
