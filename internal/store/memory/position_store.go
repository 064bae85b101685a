package memory

import (
	"context"
	"sort"

	"github.com/stackcast/stackcast/internal/domain"
)

// Get returns the position for (wallet, marketID), or domain.ErrNotFound.
func (s *Store) Get(_ context.Context, wallet, marketID string) (domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[wallet][marketID]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return p, nil
}

// Upsert inserts or replaces the position keyed by (wallet, marketID).
func (s *Store) Upsert(_ context.Context, p domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(p)
	return nil
}

func (s *Store) upsertLocked(p domain.Position) {
	byMarket, ok := s.positions[p.Wallet]
	if !ok {
		byMarket = make(map[string]domain.Position)
		s.positions[p.Wallet] = byMarket
	}
	byMarket[p.MarketID] = p
}

// ListByWallet returns all positions of a wallet, ordered by creation time.
func (s *Store) ListByWallet(_ context.Context, wallet string) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []domain.Position
	for _, p := range s.positions[wallet] {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

// ListByMarket returns every wallet's position in the given market.
func (s *Store) ListByMarket(_ context.Context, marketID string) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []domain.Position
	for _, byMarket := range s.positions {
		if p, ok := byMarket[marketID]; ok {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Wallet < res[j].Wallet })
	return res, nil
}
