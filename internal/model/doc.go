// Package model defines shared data types used across the market-data layer.
//
// Conventions:
//   - Prices: float64 rupees (matches the upstream catalog and tick feeds)
//   - Strikes: float64, 0 for non-option instruments
//   - Identity: trading symbol for instruments, instrument token for feeds
package model
