// Package book maintains per-asset order books and computes derived
// statistics.
//
// The Aggregator owns the authoritative level sets. Writes (feed updates,
// poller re-syncs) are serialized per asset; reads return deep copies, so
// a consumer never observes a book mid-mutation. Statistics are computed
// only from snapshots, never against the live book.
package book
