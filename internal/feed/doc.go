// Package feed decodes live market-channel messages and applies them to
// the order book aggregator.
//
// Only the feed's output shape is handled here: full book events and
// per-level price changes. Establishing and keeping the upstream
// connection alive is the caller's concern; Listen simply drains an
// already-connected WebSocket. Malformed messages are counted and
// skipped, never fatal.
package feed
