package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stackcast/stackcast/internal/domain"
	"github.com/stackcast/stackcast/internal/store/memory"
)

// recordBlob captures every Put so tests can inspect what was archived.
type recordBlob struct {
	puts []recordedPut
}

type recordedPut struct {
	path string
	body string
}

func (b *recordBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.puts = append(b.puts, recordedPut{path: path, body: string(body)})
	return nil
}

func insertTrade(t *testing.T, st *memory.Store, id string, age time.Duration) {
	t.Helper()
	err := st.Insert(context.Background(), domain.Trade{
		ID:        id,
		MarketID:  "m1",
		Wallet:    "SP1WALLET",
		Outcome:   domain.OutcomeYes,
		AmountUSD: 100,
		Shares:    200,
		PriceBps:  5000,
		CreatedAt: time.Now().UTC().Add(-age),
	})
	if err != nil {
		t.Fatalf("insert trade %s: %v", id, err)
	}
}

func TestArchiveOnceDrainsWithoutDuplicates(t *testing.T) {
	st := memory.New()
	blob := &recordBlob{}
	svc := NewArchiveService(st, blob, 24*time.Hour, time.Hour, 100, testLogger())
	ctx := context.Background()

	insertTrade(t, st, "t-old-1", 72*time.Hour)
	insertTrade(t, st, "t-old-2", 48*time.Hour)
	insertTrade(t, st, "t-fresh", time.Minute)

	// Three passes over the same history must archive each old trade once.
	for i := 0; i < 3; i++ {
		if err := svc.ArchiveOnce(ctx); err != nil {
			t.Fatalf("pass %d: %v", i+1, err)
		}
	}

	if len(blob.puts) != 1 {
		t.Fatalf("puts = %d, want 1 (later passes have nothing left)", len(blob.puts))
	}
	for _, id := range []string{"t-old-1", "t-old-2"} {
		if got := strings.Count(blob.puts[0].body, id); got != 1 {
			t.Errorf("trade %s archived %d times, want 1", id, got)
		}
	}
	if strings.Contains(blob.puts[0].body, "t-fresh") {
		t.Errorf("trade inside the retention window was archived")
	}
}

func TestArchiveOnceBatchesForward(t *testing.T) {
	st := memory.New()
	blob := &recordBlob{}
	svc := NewArchiveService(st, blob, 24*time.Hour, time.Hour, 1, testLogger())
	ctx := context.Background()

	insertTrade(t, st, "t-old-1", 72*time.Hour)
	insertTrade(t, st, "t-old-2", 48*time.Hour)

	if err := svc.ArchiveOnce(ctx); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if err := svc.ArchiveOnce(ctx); err != nil {
		t.Fatalf("second pass: %v", err)
	}

	if len(blob.puts) != 2 {
		t.Fatalf("puts = %d, want 2 (one trade per batch)", len(blob.puts))
	}
	if !strings.Contains(blob.puts[0].body, "t-old-1") {
		t.Errorf("first batch should hold the oldest trade")
	}
	if !strings.Contains(blob.puts[1].body, "t-old-2") {
		t.Errorf("second batch should hold the next trade")
	}
	if strings.Contains(blob.puts[1].body, "t-old-1") {
		t.Errorf("second batch repeats an already archived trade")
	}
}

func TestArchiveOnceNothingToDo(t *testing.T) {
	st := memory.New()
	blob := &recordBlob{}
	svc := NewArchiveService(st, blob, 24*time.Hour, time.Hour, 100, testLogger())

	insertTrade(t, st, "t-fresh", time.Minute)

	if err := svc.ArchiveOnce(context.Background()); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if len(blob.puts) != 0 {
		t.Fatalf("puts = %d, want 0", len(blob.puts))
	}
}
