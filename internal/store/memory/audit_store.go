package memory

import (
	"context"

	"github.com/stackcast/stackcast/internal/domain"
)

// Log appends an audit entry.
func (s *Store) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditID++
	s.audit = append(s.audit, domain.AuditEntry{
		ID:        s.auditID,
		Event:     event,
		Detail:    detail,
		CreatedAt: now(),
	})
	return nil
}

// Recent returns audit entries, newest first.
func (s *Store) Recent(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []domain.AuditEntry
	skipped := 0
	for i := len(s.audit) - 1; i >= 0; i-- {
		if skipped < opts.Offset {
			skipped++
			continue
		}
		res = append(res, s.audit[i])
		if opts.Limit > 0 && len(res) == opts.Limit {
			break
		}
	}
	return res, nil
}
