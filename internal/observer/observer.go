// Package observer implements the market observation stage: a concurrent,
// bounded scan across every configured venue source, feeding the
// latest-observation cache.
package observer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/omniarb/omniarbbot/internal/domain"
	"github.com/omniarb/omniarbbot/internal/venue"
)

const (
	defaultScanConcurrency = 4
	defaultFetchTimeout    = 3 * time.Second
)

// Config holds the observer's scan parameters.
type Config struct {
	// ScanConcurrency caps the number of in-flight source fetches.
	ScanConcurrency int

	// FetchTimeout bounds each individual source fetch.
	FetchTimeout time.Duration
}

// MarketObserver scans a set of venue sources and aggregates their
// observations. A source that fails or times out is dropped from the scan and
// counted, never aborting the cycle.
type MarketObserver struct {
	cfg     Config
	sources []venue.Source
	cache   domain.ObservationCache // optional
	logger  *slog.Logger

	active        atomic.Bool
	scansRun      atomic.Int64
	observations  atomic.Int64
	failedFetches atomic.Int64
}

// New creates a MarketObserver over the given sources. cache may be nil when
// no snapshot sharing is needed. Zero config values fall back to defaults.
func New(cfg Config, sources []venue.Source, cache domain.ObservationCache, logger *slog.Logger) *MarketObserver {
	if cfg.ScanConcurrency <= 0 {
		cfg.ScanConcurrency = defaultScanConcurrency
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}

	return &MarketObserver{
		cfg:     cfg,
		sources: sources,
		cache:   cache,
		logger:  logger.With(slog.String("component", "observer")),
	}
}

// Activate marks the observer active. Idempotent.
func (o *MarketObserver) Activate(_ context.Context) error {
	if o.active.CompareAndSwap(false, true) {
		o.logger.Info("observer activated", slog.Int("sources", len(o.sources)))
	}
	return nil
}

// Deactivate marks the observer inactive. Idempotent.
func (o *MarketObserver) Deactivate(_ context.Context) error {
	if o.active.CompareAndSwap(true, false) {
		o.logger.Info("observer deactivated")
	}
	return nil
}

// Scan fetches every source concurrently, bounded by ScanConcurrency, and
// returns the aggregated observations in source order. An inactive observer
// returns an empty result without touching any counter.
func (o *MarketObserver) Scan(ctx context.Context) (domain.ScanResult, error) {
	if !o.active.Load() {
		return domain.ScanResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.ScanResult{}, err
	}

	o.scansRun.Add(1)

	g := new(errgroup.Group)
	g.SetLimit(o.cfg.ScanConcurrency)

	// Per-source result slots; distinct indices need no lock.
	results := make([][]domain.Observation, len(o.sources))
	var mu sync.Mutex
	failed := 0

	for i, src := range o.sources {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
			defer cancel()

			obs, err := src.Fetch(fctx)
			if err != nil {
				o.failedFetches.Add(1)
				o.logger.Warn("source fetch failed",
					slog.String("venue", src.Name()),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			valid := make([]domain.Observation, 0, len(obs))
			for _, ob := range obs {
				if !ob.Valid() {
					o.logger.Warn("dropping invalid observation",
						slog.String("venue", src.Name()),
						slog.String("pair", ob.Pair),
						slog.Float64("price", ob.Price),
					)
					continue
				}
				valid = append(valid, ob)
			}
			results[i] = valid
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.Observation, 0, len(o.sources))
	for _, group := range results {
		out = append(out, group...)
	}
	o.observations.Add(int64(len(out)))

	if o.cache != nil {
		for _, ob := range out {
			if err := o.cache.Put(ctx, ob); err != nil {
				o.logger.Warn("cache put failed",
					slog.String("key", ob.Key()),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	o.logger.Debug("scan complete",
		slog.Int("observations", len(out)),
		slog.Int("failed_sources", failed),
	)

	return domain.ScanResult{Observations: out, FailedSources: failed}, nil
}

// Latest returns the cached observation snapshot. Without a cache it returns
// an empty slice.
func (o *MarketObserver) Latest(ctx context.Context) ([]domain.Observation, error) {
	if o.cache == nil {
		return []domain.Observation{}, nil
	}
	return o.cache.List(ctx)
}

// Monitor runs scans on a ticker until ctx is cancelled. It is the standalone
// sensing mode: scan results only feed the cache and the logs. The observer
// must be activated first.
func (o *MarketObserver) Monitor(ctx context.Context, interval time.Duration) error {
	if !o.active.Load() {
		return fmt.Errorf("observer: monitor: %w", domain.ErrInactive)
	}
	o.logger.Info("monitor started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := o.Scan(ctx)
		if err != nil {
			if ctx.Err() != nil {
				o.logger.Info("monitor stopped")
				return nil
			}
			o.logger.Error("scan failed", slog.String("error", err.Error()))
		} else {
			o.logger.Info("market snapshot",
				slog.Int("observations", len(res.Observations)),
				slog.Int("failed_sources", res.FailedSources),
			)
		}

		select {
		case <-ctx.Done():
			o.logger.Info("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Stats returns a snapshot of the observer's counters.
func (o *MarketObserver) Stats() domain.ObserverStats {
	return domain.ObserverStats{
		Active:        o.active.Load(),
		Sources:       len(o.sources),
		ScansRun:      o.scansRun.Load(),
		Observations:  o.observations.Load(),
		FailedFetches: o.failedFetches.Load(),
	}
}
