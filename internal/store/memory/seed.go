package memory

import (
	"context"
	"time"

	"github.com/stackcast/stackcast/internal/domain"
)

const seedOracle = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

// Seed loads the demo market set so a fresh instance has something to browse
// and a resolved market to exercise redemption against.
func (s *Store) Seed(ctx context.Context) error {
	ts := now()
	seeds := []domain.Market{
		{
			ID:        "1",
			Question:  "Will Bitcoin exceed $100,000 by December 2025?",
			YesBps:    6800,
			NoBps:     3200,
			Liquidity: 2_500_000,
			Volume:    8_450_000,
			EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			Oracle:    seedOracle,
			Status:    domain.MarketStatusOpen,
			Category:  "Crypto",
		},
		{
			ID:        "2",
			Question:  "Will Ethereum merge to proof-of-stake in Q2 2025?",
			YesBps:    4200,
			NoBps:     5800,
			Liquidity: 1_800_000,
			Volume:    3_200_000,
			EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			Oracle:    seedOracle,
			Status:    domain.MarketStatusOpen,
			Category:  "Crypto",
		},
		{
			ID:        "3",
			Question:  "Will the US Fed raise interest rates in March 2025?",
			YesBps:    7500,
			NoBps:     2500,
			Liquidity: 4_200_000,
			Volume:    12_000_000,
			EndDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			Oracle:    seedOracle,
			Status:    domain.MarketStatusOpen,
			Category:  "Finance",
		},
		{
			ID:        "4",
			Question:  "Will Apple release a VR headset in 2025?",
			YesBps:    5500,
			NoBps:     4500,
			Liquidity: 950_000,
			Volume:    2_100_000,
			EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			Oracle:    seedOracle,
			Status:    domain.MarketStatusOpen,
			Category:  "Tech",
		},
		{
			ID:        "5",
			Question:  "Will global temperatures rise by 1.5°C by end of 2025?",
			YesBps:    3800,
			NoBps:     6200,
			Liquidity: 720_000,
			Volume:    1_500_000,
			EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			Oracle:    seedOracle,
			Status:    domain.MarketStatusOpen,
			Category:  "Climate",
		},
		{
			ID:              "6",
			Question:        "Did Bitcoin reach $50k in January 2025?",
			YesBps:          10000,
			NoBps:           0,
			Liquidity:       500_000,
			Volume:          1_200_000,
			EndDate:         time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			Oracle:          seedOracle,
			Status:          domain.MarketStatusResolved,
			ResolvedOutcome: domain.OutcomeYes,
			Category:        "Crypto",
		},
	}

	for _, m := range seeds {
		m.CreatedAt = ts
		m.UpdatedAt = ts
		if err := s.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
