package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/stackcast/stackcast/internal/domain"
)

// AuditLog defines what the audit handler needs from the store layer.
type AuditLog interface {
	Recent(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error)
}

// AuditHandler serves the operator-facing audit log.
type AuditHandler struct {
	audit  AuditLog
	logger *slog.Logger
}

// NewAuditHandler creates an AuditHandler.
func NewAuditHandler(audit AuditLog, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// auditEntryResponse is the wire shape of an audit log row.
type auditEntryResponse struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ListAudit returns the most recent audit entries, newest first.
// GET /api/audit?limit=50&offset=0
func (h *AuditHandler) ListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.Recent(r.Context(), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:        e.ID,
			Event:     e.Event,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": out,
	})
}
