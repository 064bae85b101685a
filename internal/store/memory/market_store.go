package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stackcast/stackcast/internal/domain"
)

// Create appends a new market. The ID must not already exist.
func (s *Store) Create(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.marketIx[m.ID]; ok {
		return fmt.Errorf("memory: create market %s: duplicate id", m.ID)
	}
	s.marketIx[m.ID] = len(s.markets)
	s.markets = append(s.markets, m)
	return nil
}

// GetByID returns a snapshot of the market with the given id.
func (s *Store) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ix, ok := s.marketIx[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return s.markets[ix], nil
}

// List returns market snapshots matching the filter. The default order is
// creation order; the liquidity, volume, and newest sort keys order
// descending by their field. Unrecognized sort keys leave creation order.
func (s *Store) List(_ context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]domain.Market, 0, len(s.markets))
	search := strings.ToLower(f.Search)
	for _, m := range s.markets {
		if f.Status != "" && f.Status != domain.StatusAll && string(m.Status) != f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(m.Question), search) {
			continue
		}
		res = append(res, m)
	}

	switch f.Sort {
	case "liquidity":
		sort.SliceStable(res, func(i, j int) bool { return res[i].Liquidity > res[j].Liquidity })
	case "volume":
		sort.SliceStable(res, func(i, j int) bool { return res[i].Volume > res[j].Volume })
	case "newest":
		sort.SliceStable(res, func(i, j int) bool { return res[i].EndDate.After(res[j].EndDate) })
	}
	return res, nil
}

// Update replaces an existing market.
func (s *Store) Update(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(m)
}

func (s *Store) updateLocked(m domain.Market) error {
	ix, ok := s.marketIx[m.ID]
	if !ok {
		return domain.ErrNotFound
	}
	s.markets[ix] = m
	return nil
}

// Count returns the number of markets.
func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.markets)), nil
}
