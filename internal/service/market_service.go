package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/metrics"
	"github.com/stackcast/stackcast/internal/notify"
)

// MarketDefaults holds the values applied to creation requests that omit
// optional fields.
type MarketDefaults struct {
	Liquidity float64
	Category  string
}

// MarketService handles market creation, lookup, listing, and resolution.
type MarketService struct {
	markets     domain.MarketStore
	resolutions domain.ResolutionApplier
	cache       domain.MarketCache // optional
	bus         domain.SignalBus
	audit       domain.AuditStore
	notifier    *notify.Notifier // optional
	defaults    MarketDefaults
	logger      *slog.Logger
}

// NewMarketService creates a MarketService. cache and notifier may be nil.
func NewMarketService(
	markets domain.MarketStore,
	resolutions domain.ResolutionApplier,
	cache domain.MarketCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier *notify.Notifier,
	defaults MarketDefaults,
	logger *slog.Logger,
) *MarketService {
	if defaults.Liquidity <= 0 {
		defaults.Liquidity = 1000
	}
	if defaults.Category == "" {
		defaults.Category = "Other"
	}
	return &MarketService{
		markets:     markets,
		resolutions: resolutions,
		cache:       cache,
		bus:         bus,
		audit:       audit,
		notifier:    notifier,
		defaults:    defaults,
		logger:      logger,
	}
}

// CreateMarketInput carries the fields of a market creation request.
type CreateMarketInput struct {
	Question  string
	Category  string
	EndDate   time.Time
	Oracle    string
	Liquidity float64
}

// Create validates the input, applies defaults, and appends a new open market
// seeded at 0.50/0.50 with zero volume.
func (s *MarketService) Create(ctx context.Context, input CreateMarketInput) (domain.Market, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return domain.Market{}, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	oracle := strings.TrimSpace(input.Oracle)
	if oracle == "" {
		return domain.Market{}, fmt.Errorf("%w: oracle is required", domain.ErrInvalidInput)
	}
	if input.EndDate.IsZero() {
		return domain.Market{}, fmt.Errorf("%w: endDate is required", domain.ErrInvalidInput)
	}

	liquidity := input.Liquidity
	if liquidity <= 0 {
		liquidity = s.defaults.Liquidity
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = s.defaults.Category
	}

	now := time.Now().UTC()
	m := domain.Market{
		ID:        uuid.NewString(),
		Question:  question,
		YesBps:    domain.PriceScaleBps / 2,
		NoBps:     domain.PriceScaleBps / 2,
		Liquidity: liquidity,
		Volume:    0,
		EndDate:   input.EndDate.UTC(),
		Oracle:    oracle,
		Status:    domain.MarketStatusOpen,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: create: %w", err)
	}

	metrics.MarketsCreated.Inc()
	s.logAudit(ctx, "market_created", map[string]any{
		"market_id": m.ID,
		"question":  m.Question,
		"category":  m.Category,
	})
	s.publish(ctx, "markets", map[string]any{
		"event":     "market_created",
		"market_id": m.ID,
		"question":  m.Question,
		"category":  m.Category,
	})

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.String("market_id", m.ID),
		slog.String("category", m.Category),
	)

	return m, nil
}

// Get retrieves a market by ID, checking the cache first and falling back to
// the store on a miss.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, id); err == nil {
			return m, nil
		}
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("market_service: get %q: %w", id, err)
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.String("market_id", id),
				slog.String("error", cacheErr.Error()),
			)
		}
	}

	return m, nil
}

// List returns market snapshots matching the filter.
func (s *MarketService) List(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("market_service: list: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	n, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return n, nil
}

// Resolve moves a market to its terminal resolved state, pins the winning
// side's price to 1.00, and marks every position in the market redeemable.
// Resolving an already resolved market fails; resolved is terminal.
func (s *MarketService) Resolve(ctx context.Context, id string, outcome domain.Outcome) (domain.Market, error) {
	if !outcome.Valid() {
		return domain.Market{}, fmt.Errorf("%w: outcome must be yes or no", domain.ErrInvalidInput)
	}

	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("market_service: resolve %q: %w", id, err)
	}
	if m.Status == domain.MarketStatusResolved {
		return domain.Market{}, domain.ErrMarketResolved
	}

	m.Status = domain.MarketStatusResolved
	m.ResolvedOutcome = outcome
	if outcome == domain.OutcomeYes {
		m.YesBps = domain.PriceScaleBps
		m.NoBps = 0
	} else {
		m.YesBps = 0
		m.NoBps = domain.PriceScaleBps
	}
	m.UpdatedAt = time.Now().UTC()

	if err := s.resolutions.ApplyResolution(ctx, m); err != nil {
		return domain.Market{}, fmt.Errorf("market_service: apply resolution %q: %w", id, err)
	}

	s.invalidateCache(ctx, id)
	metrics.MarketsResolved.WithLabelValues(string(outcome)).Inc()
	s.logAudit(ctx, "market_resolved", map[string]any{
		"market_id": m.ID,
		"outcome":   string(outcome),
	})
	s.publish(ctx, "markets", map[string]any{
		"event":     "market_resolved",
		"market_id": m.ID,
		"outcome":   string(outcome),
	})

	if s.notifier != nil {
		msg := fmt.Sprintf("%s\nOutcome: %s", m.Question, outcome)
		if notifyErr := s.notifier.Notify(ctx, "market_resolved", "Market resolved", msg); notifyErr != nil {
			s.logger.WarnContext(ctx, "market_service: notify failed",
				slog.String("market_id", m.ID),
				slog.String("error", notifyErr.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "market_service: market resolved",
		slog.String("market_id", m.ID),
		slog.String("outcome", string(outcome)),
	)

	return m, nil
}

// invalidateCache drops the cached market entry; failures are logged only,
// the cache expires on its own.
func (s *MarketService) invalidateCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MarketService) logAudit(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "market_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *MarketService) publish(ctx context.Context, channel string, doc map[string]any) {
	payload, _ := json.Marshal(doc)
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "market_service: publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
