package venue

import (
	"context"
	"hash/fnv"
	"math"
	"sync/atomic"
	"time"

	"github.com/omniarb/omniarbbot/internal/domain"
)

// demoEntry is one instrument in a static source's book.
type demoEntry struct {
	pair      string
	price     float64
	liquidity float64
}

// demoBooks are the reference books for the named demo venues.
var demoBooks = map[string][]demoEntry{
	"ethereum": {{pair: "ETH/USDC", price: 2000.50, liquidity: 1_000_000}},
	"bsc":      {{pair: "ETH/USDC", price: 2001.25, liquidity: 500_000}},
}

// StaticSource serves a fixed demo book without touching the network. Prices
// carry a small deterministic wobble so consecutive scans differ.
type StaticSource struct {
	venue string
	book  []demoEntry
	calls atomic.Uint64
}

// NewStaticSource returns a static source for the named venue. Venues outside
// the reference table get a book derived from the venue name, so any two
// static venues still quote slightly different prices.
func NewStaticSource(venue string) *StaticSource {
	book, ok := demoBooks[venue]
	if !ok {
		book = derivedBook(venue)
	}
	return &StaticSource{venue: venue, book: book}
}

// Name implements Source.
func (s *StaticSource) Name() string { return s.venue }

// Fetch implements Source. It never fails once constructed, except when the
// context is already done.
func (s *StaticSource) Fetch(ctx context.Context) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := s.calls.Add(1)
	now := time.Now().UTC()

	out := make([]domain.Observation, 0, len(s.book))
	for _, e := range s.book {
		out = append(out, domain.Observation{
			Venue:     s.venue,
			Pair:      e.pair,
			Price:     e.price * wobble(n),
			Liquidity: e.liquidity,
			Timestamp: now,
		})
	}
	return out, nil
}

// wobble returns a multiplicative nudge within ±0.05% keyed on the fetch
// counter. Deterministic so tests can reason about bounds.
func wobble(n uint64) float64 {
	return 1 + 0.0005*math.Sin(float64(n))
}

// derivedBook builds a one-instrument book for a venue outside the reference
// table. The base price is spread across ±0.5% of the reference price keyed
// on the venue name.
func derivedBook(venue string) []demoEntry {
	h := fnv.New32a()
	h.Write([]byte(venue))
	offset := float64(h.Sum32()%100)/10_000.0 - 0.005

	return []demoEntry{{
		pair:      "ETH/USDC",
		price:     2000.0 * (1 + offset),
		liquidity: 750_000,
	}}
}
