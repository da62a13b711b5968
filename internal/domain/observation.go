// Package domain defines the core types shared by the omniarb pipeline:
// market observations, arbitrage opportunities, execution outcomes, and the
// cache interfaces their lifecycles depend on.
package domain

import (
	"fmt"
	"time"
)

// Observation is a snapshot of a tradable pair's state on one venue at one
// instant. Observations are immutable once constructed; a new one is created
// on every scan.
type Observation struct {
	Venue     string    `json:"venue"`
	Pair      string    `json:"pair"` // base/quote symbol, e.g. "ETH/USDC"
	Price     float64   `json:"price"`
	Liquidity float64   `json:"liquidity"`
	Timestamp time.Time `json:"timestamp"`
}

// ObservationKey builds the cache key for a (venue, pair) slot.
func ObservationKey(venue, pair string) string {
	return venue + ":" + pair
}

// Key returns the cache key identifying the (venue, pair) slot this
// observation occupies. A newer observation for the same key overwrites the
// older one.
func (o Observation) Key() string {
	return ObservationKey(o.Venue, o.Pair)
}

// Valid reports whether the observation satisfies the type's invariants:
// a positive price and non-negative liquidity on a named venue and pair.
// Sources occasionally emit zeroed ticks during venue maintenance windows;
// those are dropped at the observer boundary rather than poisoning analysis.
func (o Observation) Valid() bool {
	return o.Venue != "" && o.Pair != "" && o.Price > 0 && o.Liquidity >= 0
}

// String renders the observation for logs.
func (o Observation) String() string {
	return fmt.Sprintf("%s/%s: $%.6f", o.Venue, o.Pair, o.Price)
}

// ScanResult is one scan's output together with partial-failure accounting.
// A venue that could not be reached is dropped from Observations and counted
// in FailedSources; it never fails the scan as a whole.
type ScanResult struct {
	Observations  []Observation
	FailedSources int
}

// Empty reports whether the scan produced no observations.
func (r ScanResult) Empty() bool {
	return len(r.Observations) == 0
}
