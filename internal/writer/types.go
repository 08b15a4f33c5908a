package writer

import (
	"time"

	"github.com/google/uuid"
)

// WriterConfig contains configuration for the history writer.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the initial capacity of the input buffer.
	BufferSize int
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
		BufferSize:    1024,
	}
}

// historyRow represents a row for the orderbook_history table.
type historyRow struct {
	ID            uuid.UUID
	AssetID       string
	CapturedAt    int64  // Microseconds
	BidLevels     int
	AskLevels     int
	TotalBidSize  float64
	TotalAskSize  float64
	Spread        *float64 // NULL when either side is empty
	SpreadPercent *float64
	MidPrice      *float64
	Imbalance     float64
	Bids          []byte // JSONB: [{price, size}, ...] best first
	Asks          []byte // JSONB
}

// WriterMetrics holds counters for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}
