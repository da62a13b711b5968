// Package venue provides market data sources for the observer. A Source
// wraps one venue endpoint and reports that venue's latest observations on
// demand.
package venue

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/omniarb/omniarbbot/internal/domain"
)

// Source reports the latest observations from one venue.
type Source interface {
	// Name identifies the venue for logging and failure accounting.
	Name() string

	// Fetch returns the venue's current observations. Implementations honor
	// ctx cancellation and deadlines.
	Fetch(ctx context.Context) ([]domain.Observation, error)
}

// NewSource builds a Source for the given endpoint URL. The scheme selects
// the implementation:
//
//	static://<venue>       built-in demo book, no network
//	http(s)://<host>/...   polled REST tickers endpoint
//	ws(s)://<host>/...     streaming feed; Fetch snapshots the latest ticks
func NewSource(endpoint string, logger *slog.Logger) (Source, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("venue: parsing endpoint %q: %w", endpoint, err)
	}

	switch u.Scheme {
	case "static":
		name := u.Host
		if name == "" {
			name = u.Opaque
		}
		if name == "" {
			return nil, fmt.Errorf("venue: static endpoint %q must name a venue", endpoint)
		}
		return NewStaticSource(name), nil
	case "http", "https":
		return NewHTTPSource(endpoint, logger), nil
	case "ws", "wss":
		return NewStreamSource(endpoint, logger), nil
	default:
		return nil, fmt.Errorf("venue: unsupported endpoint scheme %q in %q", u.Scheme, endpoint)
	}
}

// tickerMessage is the wire format shared by the HTTP tickers endpoint and
// the streaming feed.
type tickerMessage struct {
	Venue     string  `json:"venue"`
	Pair      string  `json:"pair"`
	Price     float64 `json:"price"`
	Liquidity float64 `json:"liquidity"`
	Timestamp int64   `json:"ts"` // unix milliseconds; zero means "now"
}

// toObservation converts a wire tick into a domain observation. Ticks that
// omit the venue are attributed to the source itself; ticks that omit the
// timestamp get the receive time.
func (t tickerMessage) toObservation(fallbackVenue string, now time.Time) domain.Observation {
	venue := t.Venue
	if venue == "" {
		venue = fallbackVenue
	}
	ts := now
	if t.Timestamp > 0 {
		ts = time.UnixMilli(t.Timestamp).UTC()
	}
	return domain.Observation{
		Venue:     venue,
		Pair:      t.Pair,
		Price:     t.Price,
		Liquidity: t.Liquidity,
		Timestamp: ts,
	}
}
