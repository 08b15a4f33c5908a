// Package writer implements the batch writer for order book history.
//
// The history writer consumes snapshots from the feed buffer, derives
// per-snapshot statistics, and batch-inserts rows into the
// orderbook_history table with append-only semantics (never update,
// only insert).
package writer
