package memory

import (
	"context"
	"time"

	"github.com/stackcast/stackcast/internal/domain"
)

// Insert appends a trade record.
func (s *Store) Insert(_ context.Context, t domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	return nil
}

// TradesByMarket returns trades for a market, newest first.
func (s *Store) TradesByMarket(_ context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterTrades(func(t domain.Trade) bool { return t.MarketID == marketID }, opts), nil
}

// TradesByWallet returns trades for a wallet, newest first.
func (s *Store) TradesByWallet(_ context.Context, wallet string, opts domain.ListOpts) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterTrades(func(t domain.Trade) bool { return t.Wallet == wallet }, opts), nil
}

// ListBetween returns up to limit trades executed after from and before to,
// oldest first. Both bounds are strict.
func (s *Store) ListBetween(_ context.Context, from, to time.Time, limit int) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []domain.Trade
	for _, t := range s.trades {
		if !t.CreatedAt.After(from) || !t.CreatedAt.Before(to) {
			continue
		}
		res = append(res, t)
		if limit > 0 && len(res) == limit {
			break
		}
	}
	return res, nil
}

// filterTrades walks the log newest-first and applies pagination. Callers
// must hold at least a read lock.
func (s *Store) filterTrades(keep func(domain.Trade) bool, opts domain.ListOpts) []domain.Trade {
	var res []domain.Trade
	skipped := 0
	for i := len(s.trades) - 1; i >= 0; i-- {
		t := s.trades[i]
		if !keep(t) {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		res = append(res, t)
		if opts.Limit > 0 && len(res) == opts.Limit {
			break
		}
	}
	return res
}
