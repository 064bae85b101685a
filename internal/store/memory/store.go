// Package memory implements the domain store interfaces with process-local
// state. It is the default backend: all state is volatile and resets on
// restart. A single RWMutex guards every structure; the trading path
// additionally serializes per market above this layer.
package memory

import (
	"sync"
	"time"

	"github.com/stackcast/stackcast/internal/domain"
)

// Store holds markets, positions, trades, and the audit log in memory. It
// implements domain.MarketStore, domain.PositionStore, domain.TradeStore,
// domain.AuditStore, domain.TradeApplier, and domain.ResolutionApplier.
type Store struct {
	mu sync.RWMutex

	// markets preserves creation order for the default listing order.
	markets  []domain.Market
	marketIx map[string]int

	// positions is wallet -> marketID -> position.
	positions map[string]map[string]domain.Position

	trades []domain.Trade

	audit   []domain.AuditEntry
	auditID int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		marketIx:  make(map[string]int),
		positions: make(map[string]map[string]domain.Position),
	}
}

// now is stubbed in tests.
var now = func() time.Time { return time.Now().UTC() }

// Compile-time interface checks.
var (
	_ domain.MarketStore       = (*Store)(nil)
	_ domain.PositionStore     = (*Store)(nil)
	_ domain.TradeStore        = (*Store)(nil)
	_ domain.AuditStore        = (*Store)(nil)
	_ domain.TradeApplier      = (*Store)(nil)
	_ domain.ResolutionApplier = (*Store)(nil)
)
