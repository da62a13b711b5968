package domain

import "context"

// ObservationCache holds the latest observation per (venue, pair) key.
// Put overwrites any prior entry for the same key; Get returns ErrNotFound
// when the key has never been observed. Implementations must be safe for
// concurrent use: the observer writes during scans while the status surface
// reads.
type ObservationCache interface {
	Put(ctx context.Context, obs Observation) error
	Get(ctx context.Context, venue, pair string) (Observation, error)
	List(ctx context.Context) ([]Observation, error)
}
