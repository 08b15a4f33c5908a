package writer

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/polydash/polydash/internal/feed"
	"github.com/polydash/polydash/internal/model"
)

func TestHistoryWriter_Transform(t *testing.T) {
	cfg := DefaultWriterConfig()
	input := feed.NewBuffer[model.OrderBookSnapshot](10)
	w := NewHistoryWriter(cfg, input, nil, nil)

	capturedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := model.OrderBookSnapshot{
		AssetID: "tok1",
		Bids: []model.PriceLevel{
			{Price: 0.50, Size: 70},
			{Price: 0.48, Size: 30},
		},
		Asks: []model.PriceLevel{
			{Price: 0.52, Size: 30},
		},
	}

	row := w.transform(snap, capturedAt)

	if row.ID == (uuid.UUID{}) {
		t.Error("ID not assigned")
	}
	if row.AssetID != "tok1" {
		t.Errorf("AssetID = %s, want tok1", row.AssetID)
	}
	if row.CapturedAt != capturedAt.UnixMicro() {
		t.Errorf("CapturedAt = %d, want %d", row.CapturedAt, capturedAt.UnixMicro())
	}
	if row.BidLevels != 2 || row.AskLevels != 1 {
		t.Errorf("levels = %d/%d, want 2/1", row.BidLevels, row.AskLevels)
	}
	if row.TotalBidSize != 100 || row.TotalAskSize != 30 {
		t.Errorf("totals = %v/%v, want 100/30", row.TotalBidSize, row.TotalAskSize)
	}
	if row.Spread == nil || *row.Spread != 0.52-0.50 {
		t.Errorf("Spread = %v, want 0.02", row.Spread)
	}
	if row.MidPrice == nil || *row.MidPrice != 0.51 {
		t.Errorf("MidPrice = %v, want 0.51", row.MidPrice)
	}

	var bids []model.PriceLevel
	if err := json.Unmarshal(row.Bids, &bids); err != nil {
		t.Fatalf("Bids not valid JSON: %v", err)
	}
	if len(bids) != 2 || bids[0].Price != 0.50 {
		t.Errorf("Bids JSON = %+v, want best first", bids)
	}
}

func TestHistoryWriter_Transform_EmptyBook(t *testing.T) {
	cfg := DefaultWriterConfig()
	input := feed.NewBuffer[model.OrderBookSnapshot](10)
	w := NewHistoryWriter(cfg, input, nil, nil)

	row := w.transform(model.OrderBookSnapshot{AssetID: "tok1"}, time.Now())

	if row.Spread != nil {
		t.Errorf("Spread = %v, want nil for empty book", *row.Spread)
	}
	if row.MidPrice != nil {
		t.Errorf("MidPrice = %v, want nil for empty book", *row.MidPrice)
	}
	if row.Imbalance != 0 {
		t.Errorf("Imbalance = %v, want 0 for empty book", row.Imbalance)
	}
	if string(row.Bids) != "[]" || string(row.Asks) != "[]" {
		t.Errorf("empty sides = %s / %s, want [] / []", row.Bids, row.Asks)
	}
}

func TestHistoryWriter_HandleSnapshot_AddsToBatch(t *testing.T) {
	cfg := WriterConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}
	input := feed.NewBuffer[model.OrderBookSnapshot](10)
	w := NewHistoryWriter(cfg, input, nil, nil)

	w.handleSnapshot(model.OrderBookSnapshot{
		AssetID: "tok1",
		Bids:    []model.PriceLevel{{Price: 0.5, Size: 1}},
	})

	w.batchMu.Lock()
	batchLen := len(w.batch)
	w.batchMu.Unlock()

	if batchLen != 1 {
		t.Errorf("batch length = %d, want 1", batchLen)
	}
}

func TestHistoryWriter_Lifecycle(t *testing.T) {
	cfg := WriterConfig{
		BatchSize:     10,
		FlushInterval: 100 * time.Millisecond,
	}
	input := feed.NewBuffer[model.OrderBookSnapshot](10)

	w := NewHistoryWriter(cfg, input, nil, nil)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	input.Send(model.OrderBookSnapshot{AssetID: "tok1"})
	time.Sleep(30 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := w.Stop(stopCtx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestHistoryWriter_StopFlushesRemaining(t *testing.T) {
	cfg := WriterConfig{
		BatchSize:     100,       // Larger than the row count, so no size-triggered flush.
		FlushInterval: time.Hour, // No timer-triggered flush either.
	}
	input := feed.NewBuffer[model.OrderBookSnapshot](10)
	w := NewHistoryWriter(cfg, input, nil, nil)

	var inserted atomic.Int32
	var insertCtxErr error
	w.insert = func(ctx context.Context, rows []historyRow) (int, error) {
		inserted.Add(int32(len(rows)))
		insertCtxErr = ctx.Err()
		return 0, nil
	}

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	input.Send(model.OrderBookSnapshot{AssetID: "tok1"})
	input.Send(model.OrderBookSnapshot{AssetID: "tok2"})

	// Wait for the consumer to move both snapshots into the batch.
	deadline := time.After(time.Second)
	for {
		w.batchMu.Lock()
		n := len(w.batch)
		w.batchMu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("snapshots never reached the batch")
		case <-time.After(5 * time.Millisecond):
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if got := inserted.Load(); got != 2 {
		t.Errorf("inserted = %d rows on Stop, want 2", got)
	}
	if insertCtxErr != nil {
		t.Errorf("final flush ran with dead context: %v", insertCtxErr)
	}
}

func TestHistoryWriter_Stats(t *testing.T) {
	cfg := DefaultWriterConfig()
	input := feed.NewBuffer[model.OrderBookSnapshot](10)
	w := NewHistoryWriter(cfg, input, nil, nil)

	stats := w.Stats()

	if stats.Inserts != 0 || stats.Errors != 0 || stats.Flushes != 0 {
		t.Errorf("initial stats = %+v, want zeros", stats)
	}
}

func TestDefaultWriterConfig(t *testing.T) {
	cfg := DefaultWriterConfig()

	if cfg.BatchSize != 500 {
		t.Errorf("BatchSize = %d, want 500", cfg.BatchSize)
	}
	if cfg.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v, want 5s", cfg.FlushInterval)
	}
	if cfg.BufferSize != 1024 {
		t.Errorf("BufferSize = %d, want 1024", cfg.BufferSize)
	}
}
