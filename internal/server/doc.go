// Package server exposes the dashboard HTTP API.
//
// Endpoints:
//   - GET /health                   liveness and version
//   - GET /api/markets              ranked market list
//   - GET /api/markets/{slug}       single market detail
//   - GET /api/orderbook            summary of all tracked books
//   - GET /api/orderbook/{assetID}  one book with derived stats
//
// All market data is served from in-memory state; only the detail
// endpoint reaches the upstream API, through the cache.
package server
