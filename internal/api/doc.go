// Package api provides REST clients for the Polymarket data APIs.
//
// Two upstream services share the same client type:
//   - Gamma (https://gamma-api.polymarket.com) serves market records.
//   - CLOB (https://clob.polymarket.com) serves order book snapshots.
//
// Raw upstream records are loosely typed (numeric strings, JSON arrays
// embedded inside string fields). Conversion to model types is tolerant:
// a malformed field yields its zero value rather than failing the record,
// and a malformed record never fails a batch.
package api
