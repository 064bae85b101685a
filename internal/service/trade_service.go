package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/metrics"
	"github.com/stackcast/stackcast/internal/notify"
)

// tradeLockTTL bounds how long the distributed per-market lock is held when
// a shared durable store is in use.
const tradeLockTTL = 5 * time.Second

// TradeService executes buy orders and redemptions against markets. Every
// mutating operation on a market is serialized behind an in-process
// per-market mutex; when a LockManager is configured (shared durable store),
// a distributed lock is taken on top.
type TradeService struct {
	markets   domain.MarketStore
	positions domain.PositionStore
	trades    domain.TradeStore
	applier   domain.TradeApplier
	cache     domain.MarketCache  // optional
	locks     domain.LockManager  // optional
	bus       domain.SignalBus
	audit     domain.AuditStore
	notifier  *notify.Notifier // optional
	logger    *slog.Logger

	// largeTradeUSD is the notification threshold; zero disables the alert.
	largeTradeUSD float64

	mu       sync.Mutex
	marketMu map[string]*sync.Mutex
}

// NewTradeService creates a TradeService. cache, locks, and notifier may be
// nil.
func NewTradeService(
	markets domain.MarketStore,
	positions domain.PositionStore,
	trades domain.TradeStore,
	applier domain.TradeApplier,
	cache domain.MarketCache,
	locks domain.LockManager,
	bus domain.SignalBus,
	audit domain.AuditStore,
	notifier *notify.Notifier,
	largeTradeUSD float64,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		markets:       markets,
		positions:     positions,
		trades:        trades,
		applier:       applier,
		cache:         cache,
		locks:         locks,
		bus:           bus,
		audit:         audit,
		notifier:      notifier,
		largeTradeUSD: largeTradeUSD,
		logger:        logger,
		marketMu:      make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing all mutations of one market.
func (s *TradeService) lockFor(marketID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.marketMu[marketID]
	if !ok {
		mu = &sync.Mutex{}
		s.marketMu[marketID] = mu
	}
	return mu
}

// Execute runs a buy order: it nudges the market price toward the chosen
// outcome, grows volume, issues shares at the post-trade price, and folds the
// purchase into the wallet's position. All preconditions are checked before
// any state is written.
func (s *TradeService) Execute(ctx context.Context, req domain.TradeRequest) (domain.TradeResult, error) {
	if strings.TrimSpace(req.Wallet) == "" {
		metrics.TradesRejected.WithLabelValues("invalid_input").Inc()
		return domain.TradeResult{}, fmt.Errorf("%w: wallet is required", domain.ErrInvalidInput)
	}
	if !req.Outcome.Valid() {
		metrics.TradesRejected.WithLabelValues("invalid_input").Inc()
		return domain.TradeResult{}, fmt.Errorf("%w: outcome must be yes or no", domain.ErrInvalidInput)
	}
	if !(req.Amount > 0) || math.IsInf(req.Amount, 0) {
		metrics.TradesRejected.WithLabelValues("invalid_amount").Inc()
		return domain.TradeResult{}, domain.ErrInvalidAmount
	}

	mu := s.lockFor(req.MarketID)
	mu.Lock()
	defer mu.Unlock()

	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "trade:market:"+req.MarketID, tradeLockTTL)
		if err != nil {
			return domain.TradeResult{}, fmt.Errorf("trade_service: acquire market lock: %w", err)
		}
		defer unlock()
	}

	m, err := s.markets.GetByID(ctx, req.MarketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.TradesRejected.WithLabelValues("not_found").Inc()
			return domain.TradeResult{}, domain.ErrNotFound
		}
		return domain.TradeResult{}, fmt.Errorf("trade_service: get market %q: %w", req.MarketID, err)
	}
	if !m.Tradable() {
		metrics.TradesRejected.WithLabelValues("not_tradable").Inc()
		return domain.TradeResult{}, domain.ErrMarketNotTradable
	}

	now := time.Now().UTC()

	// Price update: nudge the yes side toward the chosen outcome, clamp,
	// and snap back onto the two-decimal grid. The no side is always the
	// exact complement.
	nudge := domain.NudgeBps(req.Amount)
	yes := m.YesBps
	if req.Outcome == domain.OutcomeYes {
		yes += nudge
	} else {
		yes -= nudge
	}
	m.YesBps = domain.SnapBps(domain.ClampYesBps(yes))
	m.NoBps = domain.PriceScaleBps - m.YesBps
	m.Volume += req.Amount
	m.UpdatedAt = now

	// Shares are issued at the post-trade price of the purchased side,
	// floored to avoid division blow-up near the clamp.
	execBps := m.YesBps
	if req.Outcome == domain.OutcomeNo {
		execBps = m.NoBps
	}
	execPrice := float64(execBps) / float64(domain.PriceScaleBps)
	if execPrice < domain.ShareFloorPrice {
		execPrice = domain.ShareFloorPrice
	}
	shares := req.Amount / execPrice

	p, err := s.positions.Get(ctx, req.Wallet, req.MarketID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.TradeResult{}, fmt.Errorf("trade_service: get position: %w", err)
		}
		p = domain.Position{
			MarketID:  req.MarketID,
			Wallet:    req.Wallet,
			CreatedAt: now,
		}
	}
	if req.Outcome == domain.OutcomeYes {
		p.YesShares += shares
	} else {
		p.NoShares += shares
	}
	p.TotalInvested += req.Amount
	p.Revalue(m)
	p.UpdatedAt = now

	t := domain.Trade{
		ID:        uuid.NewString(),
		MarketID:  req.MarketID,
		Wallet:    req.Wallet,
		Outcome:   req.Outcome,
		AmountUSD: req.Amount,
		Shares:    shares,
		PriceBps:  execBps,
		CreatedAt: now,
	}

	if err := s.applier.ApplyTrade(ctx, m, p, t); err != nil {
		return domain.TradeResult{}, fmt.Errorf("trade_service: apply trade: %w", err)
	}

	s.invalidateCache(ctx, req.MarketID)
	metrics.TradesExecuted.WithLabelValues(string(req.Outcome)).Inc()
	metrics.TradeVolumeUSD.Add(req.Amount)
	s.logAudit(ctx, "trade_executed", map[string]any{
		"trade_id":  t.ID,
		"market_id": t.MarketID,
		"wallet":    t.Wallet,
		"outcome":   string(t.Outcome),
		"amount":    t.AmountUSD,
		"shares":    t.Shares,
		"price_bps": t.PriceBps,
	})
	s.publish(ctx, "trades", map[string]any{
		"event":     "trade_executed",
		"trade_id":  t.ID,
		"market_id": t.MarketID,
		"wallet":    t.Wallet,
		"outcome":   string(t.Outcome),
		"amount":    t.AmountUSD,
		"shares":    t.Shares,
		"yes_price": m.YesPrice(),
		"no_price":  m.NoPrice(),
		"volume":    m.Volume,
		"timestamp": now.Format(time.RFC3339),
	})

	if s.notifier != nil && s.largeTradeUSD > 0 && req.Amount >= s.largeTradeUSD {
		msg := fmt.Sprintf("%s\n%s $%.2f on %s", m.Question, strings.ToUpper(string(req.Outcome)), req.Amount, req.MarketID)
		if notifyErr := s.notifier.Notify(ctx, "large_trade", "Large trade", msg); notifyErr != nil {
			s.logger.WarnContext(ctx, "trade_service: notify failed",
				slog.String("trade_id", t.ID),
				slog.String("error", notifyErr.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "trade_service: trade executed",
		slog.String("trade_id", t.ID),
		slog.String("market_id", t.MarketID),
		slog.String("outcome", string(t.Outcome)),
		slog.Float64("amount", t.AmountUSD),
		slog.Float64("shares", t.Shares),
		slog.Int64("yes_bps", m.YesBps),
	)

	return domain.TradeResult{Market: m, Position: p, Trade: t}, nil
}

// Redeem settles a wallet's position in a resolved market: winning shares
// pay out at $1 each, the losing side pays zero, and the position is marked
// redeemed so it cannot be settled twice.
func (s *TradeService) Redeem(ctx context.Context, wallet, marketID string) (domain.RedeemResult, error) {
	if strings.TrimSpace(wallet) == "" {
		return domain.RedeemResult{}, fmt.Errorf("%w: wallet is required", domain.ErrInvalidInput)
	}

	mu := s.lockFor(marketID)
	mu.Lock()
	defer mu.Unlock()

	m, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RedeemResult{}, domain.ErrNotFound
		}
		return domain.RedeemResult{}, fmt.Errorf("trade_service: get market %q: %w", marketID, err)
	}
	if m.Status != domain.MarketStatusResolved {
		return domain.RedeemResult{}, domain.ErrMarketNotResolved
	}

	p, err := s.positions.Get(ctx, wallet, marketID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.RedeemResult{}, domain.ErrNoPosition
		}
		return domain.RedeemResult{}, fmt.Errorf("trade_service: get position: %w", err)
	}
	if !p.CanRedeem {
		return domain.RedeemResult{}, domain.ErrAlreadyRedeemed
	}

	winning := p.WinningShares(m)
	payout := winning // $1 per winning share

	p.CanRedeem = false
	p.Revalue(m)
	p.UpdatedAt = time.Now().UTC()

	if err := s.positions.Upsert(ctx, p); err != nil {
		return domain.RedeemResult{}, fmt.Errorf("trade_service: update position: %w", err)
	}

	metrics.Redemptions.Inc()
	metrics.RedemptionPayoutUSD.Add(payout)
	s.logAudit(ctx, "position_redeemed", map[string]any{
		"market_id": marketID,
		"wallet":    wallet,
		"outcome":   string(m.ResolvedOutcome),
		"shares":    winning,
		"payout":    payout,
	})
	s.publish(ctx, "positions", map[string]any{
		"event":     "position_redeemed",
		"market_id": marketID,
		"wallet":    wallet,
		"outcome":   string(m.ResolvedOutcome),
		"payout":    payout,
	})

	s.logger.InfoContext(ctx, "trade_service: position redeemed",
		slog.String("market_id", marketID),
		slog.String("wallet", wallet),
		slog.Float64("payout", payout),
	)

	return domain.RedeemResult{
		MarketID:  marketID,
		Wallet:    wallet,
		Outcome:   m.ResolvedOutcome,
		Shares:    winning,
		PayoutUSD: payout,
	}, nil
}

// ListByMarket returns trade history for a market, newest first.
func (s *TradeService) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.trades.TradesByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list by market %q: %w", marketID, err)
	}
	return trades, nil
}

func (s *TradeService) invalidateCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "trade_service: cache invalidate failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TradeService) logAudit(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "trade_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s *TradeService) publish(ctx context.Context, channel string, doc map[string]any) {
	payload, _ := json.Marshal(doc)
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "trade_service: publish event failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
