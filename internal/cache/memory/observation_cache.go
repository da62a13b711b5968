// Package memory provides an in-process observation cache for single-node
// runs and tests. It is the fallback when Redis is disabled.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/omniarb/omniarbbot/internal/domain"
)

// ObservationCache is a mutex-guarded latest-observation table keyed by
// (venue, pair).
type ObservationCache struct {
	mu   sync.RWMutex
	data map[string]domain.Observation
}

var _ domain.ObservationCache = (*ObservationCache)(nil)

// New creates an empty in-memory observation cache.
func New() *ObservationCache {
	return &ObservationCache{
		data: make(map[string]domain.Observation),
	}
}

// Put stores obs, overwriting any prior observation for the same key.
func (c *ObservationCache) Put(_ context.Context, obs domain.Observation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[obs.Key()] = obs
	return nil
}

// Get returns the latest observation for (venue, pair), or ErrNotFound when
// the slot has never been written.
func (c *ObservationCache) Get(_ context.Context, venue, pair string) (domain.Observation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	obs, ok := c.data[domain.ObservationKey(venue, pair)]
	if !ok {
		return domain.Observation{}, domain.ErrNotFound
	}
	return obs, nil
}

// List returns every cached observation sorted by key.
func (c *ObservationCache) List(_ context.Context) ([]domain.Observation, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Observation, 0, len(c.data))
	for _, obs := range c.data {
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}
