// Package model defines the data contracts shared across the service.
//
// Conventions:
//   - Prices and probabilities are float64 in [0, 1].
//   - Volume, liquidity, and size fields are float64 and never negative.
//   - Derived fields that can be absent (probability, spread, mid-price)
//     are pointers and marshal to JSON null.
//   - Numeric fields are always finite; normalization guarantees no NaN
//     or Inf ever enters a model value.
package model
