package memory

import (
	"context"
	"fmt"

	"github.com/stackcast/stackcast/internal/domain"
)

// ApplyTrade persists the outcome of an executed trade under a single lock:
// the updated market, the updated position, and the trade record land
// together or not at all.
func (s *Store) ApplyTrade(_ context.Context, m domain.Market, p domain.Position, t domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateLocked(m); err != nil {
		return fmt.Errorf("memory: apply trade %s: %w", t.ID, err)
	}
	s.upsertLocked(p)
	s.trades = append(s.trades, t)
	return nil
}

// ApplyResolution persists a terminal market state and marks every position
// in the market redeemable.
func (s *Store) ApplyResolution(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateLocked(m); err != nil {
		return fmt.Errorf("memory: apply resolution %s: %w", m.ID, err)
	}
	for wallet, byMarket := range s.positions {
		if p, ok := byMarket[m.ID]; ok {
			p.CanRedeem = true
			p.Revalue(m)
			p.UpdatedAt = now()
			s.positions[wallet][m.ID] = p
		}
	}
	return nil
}
