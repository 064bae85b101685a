package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/metrics"
)

// ArchiveService periodically snapshots trades older than the retention
// window to blob storage as newline-delimited JSON. It is a read-side
// archiver; the primary store keeps its copy. A high-water mark tracks the
// newest trade already archived so each pass drains forward and no trade is
// uploaded twice.
type ArchiveService struct {
	trades    domain.TradeStore
	blob      domain.BlobWriter
	retention time.Duration
	interval  time.Duration
	batchSize int
	logger    *slog.Logger

	// mark is the CreatedAt of the newest archived trade. Trades at or
	// before it are skipped.
	mark time.Time
}

func NewArchiveService(trades domain.TradeStore, blob domain.BlobWriter, retention, interval time.Duration, batchSize int, logger *slog.Logger) *ArchiveService {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &ArchiveService{
		trades:    trades,
		blob:      blob,
		retention: retention,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run loops until ctx is canceled, archiving one batch per tick.
func (s *ArchiveService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "archive_service: started",
		slog.Duration("interval", s.interval),
		slog.Duration("retention", s.retention),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "archive_service: stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.ArchiveOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "archive_service: archive pass failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// ArchiveOnce writes one batch of not-yet-archived trades older than the
// retention window to blob storage, then advances the high-water mark past
// them. It returns nil when there is nothing to archive.
func (s *ArchiveService) ArchiveOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.retention)

	trades, err := s.trades.ListBetween(ctx, s.mark, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("archive_service: list trades before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if len(trades) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, t := range trades {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("archive_service: encode trade %s: %w", t.ID, err)
		}
	}

	path := fmt.Sprintf("trades/%s/%s.ndjson",
		cutoff.Format("2006/01/02"),
		time.Now().UTC().Format("150405.000000000"),
	)
	if err := s.blob.Put(ctx, path, &buf, "application/x-ndjson"); err != nil {
		return fmt.Errorf("archive_service: put %s: %w", path, err)
	}

	s.mark = trades[len(trades)-1].CreatedAt

	metrics.TradesArchived.Add(float64(len(trades)))
	s.logger.InfoContext(ctx, "archive_service: batch archived",
		slog.Int("trades", len(trades)),
		slog.String("path", path),
	)
	return nil
}
