// Package poller implements the book re-sync poller.
//
// The poller:
//   - Periodically fetches full order books over REST for every tracked asset
//   - Replaces the aggregator's state, correcting any drift from the live feed
//   - Bounds request concurrency and applies a per-request timeout
package poller
