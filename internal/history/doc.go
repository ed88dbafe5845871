// Package history reads daily candles from Postgres. It backs the
// second tier of reference-price resolution: when no live price is
// available for an underlying, the most recent daily close stands in.
package history
