package writer

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polydash/polydash/internal/book"
	"github.com/polydash/polydash/internal/feed"
	"github.com/polydash/polydash/internal/metrics"
	"github.com/polydash/polydash/internal/model"
)

// HistoryWriter consumes order book snapshots from the feed buffer and
// writes them to the orderbook_history table.
type HistoryWriter struct {
	cfg    WriterConfig
	logger *slog.Logger

	// Input from the feed handler
	input *feed.Buffer[model.OrderBookSnapshot]

	// Database
	db *pgxpool.Pool

	// Batching
	batch       []historyRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics WriterMetrics

	// insert writes one batch. Nil when no database is configured.
	insert func(ctx context.Context, rows []historyRow) (int, error)
}

// NewHistoryWriter creates a new HistoryWriter.
func NewHistoryWriter(
	cfg WriterConfig,
	input *feed.Buffer[model.OrderBookSnapshot],
	db *pgxpool.Pool,
	logger *slog.Logger,
) *HistoryWriter {
	if logger == nil {
		logger = slog.Default()
	}
	w := &HistoryWriter{
		cfg:    cfg,
		input:  input,
		db:     db,
		logger: logger,
		batch:  make([]historyRow, 0, cfg.BatchSize),
	}
	if db != nil {
		w.insert = w.batchInsert
	}
	return w
}

// Start begins consuming snapshots and writing to the database.
func (w *HistoryWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("history writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *HistoryWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping history writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("history writer stopped")
	case <-ctx.Done():
		w.logger.Warn("history writer stop timed out")
	}

	// Final flush. The writer's own context is already cancelled, so the
	// caller's context drives the last insert.
	w.flush(ctx)

	return nil
}

// Stats returns current metrics.
func (w *HistoryWriter) Stats() WriterMetrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads from the input buffer and accumulates the batch.
func (w *HistoryWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			snap, ok := w.input.TryReceive()
			if !ok {
				select {
				case <-w.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
					continue
				}
			}

			w.handleSnapshot(snap)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *HistoryWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// handleSnapshot transforms a snapshot and adds it to the batch.
func (w *HistoryWriter) handleSnapshot(snap model.OrderBookSnapshot) {
	row := w.transform(snap, time.Now())

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// transform converts a snapshot to a historyRow with derived stats.
func (w *HistoryWriter) transform(snap model.OrderBookSnapshot, capturedAt time.Time) historyRow {
	stats := book.ComputeStats(snap)

	bids, err := json.Marshal(snap.Bids)
	if err != nil {
		bids = []byte("[]")
	}
	asks, err := json.Marshal(snap.Asks)
	if err != nil {
		asks = []byte("[]")
	}

	return historyRow{
		ID:            uuid.New(),
		AssetID:       snap.AssetID,
		CapturedAt:    capturedAt.UnixMicro(),
		BidLevels:     stats.BidLevels,
		AskLevels:     stats.AskLevels,
		TotalBidSize:  stats.BidTotal,
		TotalAskSize:  stats.AskTotal,
		Spread:        stats.Spread,
		SpreadPercent: stats.SpreadPercent,
		MidPrice:      stats.MidPrice,
		Imbalance:     stats.Imbalance,
		Bids:          bids,
		Asks:          asks,
	}
}

// flush writes the accumulated batch to the database.
func (w *HistoryWriter) flush(ctx context.Context) {
	if w.insert == nil {
		return
	}

	w.batchMu.Lock()
	batch := w.batch
	w.batch = make([]historyRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	if len(batch) == 0 {
		return
	}

	start := time.Now()

	conflicts, err := w.insert(ctx, batch)
	if err != nil {
		w.logger.Error("history batch insert failed", "error", err, "count", len(batch))
		metrics.WriterErrors.Inc()
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	metrics.WriterFlushes.Inc()
	metrics.WriterRows.Add(float64(len(batch) - conflicts))
	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch) - conflicts)
	w.metrics.Conflicts += int64(conflicts)
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed history",
		"rows", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows with ON CONFLICT DO NOTHING.
func (w *HistoryWriter) batchInsert(ctx context.Context, rows []historyRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO orderbook_history (id, asset_id, captured_at, bid_levels, ask_levels, total_bid_size, total_ask_size, spread, spread_percent, mid_price, imbalance, bids, asks)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (asset_id, captured_at) DO NOTHING
		`, r.ID, r.AssetID, r.CapturedAt, r.BidLevels, r.AskLevels, r.TotalBidSize, r.TotalAskSize, r.Spread, r.SpreadPercent, r.MidPrice, r.Imbalance, r.Bids, r.Asks)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
