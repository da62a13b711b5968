// Package arbitrage implements cross-venue opportunity detection over a
// shared observation snapshot.
package arbitrage

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/omniarb/omniarbbot/internal/domain"
)

const (
	defaultMinProfitThreshold = 0.01
	defaultTradeNotional      = 1000.0
)

// Config configures the detector.
type Config struct {
	// MinProfitThreshold is the minimum profit fraction an observation pair
	// must clear. A pair exactly at the threshold still qualifies.
	MinProfitThreshold float64

	// TradeNotional is the fixed notional the profit estimate assumes.
	TradeNotional float64
}

// Detector compares every unordered pair of observations and emits an
// opportunity whenever the same instrument trades at sufficiently different
// prices on two venues.
type Detector struct {
	cfg    Config
	logger *slog.Logger

	active atomic.Bool
	found  atomic.Int64
}

// NewDetector creates a detector. Zero config values fall back to defaults.
func NewDetector(cfg Config, logger *slog.Logger) *Detector {
	if cfg.MinProfitThreshold <= 0 {
		cfg.MinProfitThreshold = defaultMinProfitThreshold
	}
	if cfg.TradeNotional <= 0 {
		cfg.TradeNotional = defaultTradeNotional
	}

	return &Detector{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "analyzer")),
	}
}

// Activate marks the detector active. Idempotent.
func (d *Detector) Activate(_ context.Context) error {
	if d.active.CompareAndSwap(false, true) {
		d.logger.Info("analyzer activated",
			slog.Float64("min_threshold", d.cfg.MinProfitThreshold))
	}
	return nil
}

// Deactivate marks the detector inactive. Idempotent.
func (d *Detector) Deactivate(_ context.Context) error {
	if d.active.CompareAndSwap(true, false) {
		d.logger.Info("analyzer deactivated")
	}
	return nil
}

// Analyze performs the exhaustive pairwise comparison and returns the
// qualifying opportunities in generation order. Analysis is pure: it never
// fails, and an inactive detector or a sub-pair snapshot yields nothing
// without touching the counter.
func (d *Detector) Analyze(ctx context.Context, observations []domain.Observation) []domain.Opportunity {
	if !d.active.Load() || len(observations) < 2 {
		return nil
	}

	now := time.Now().UTC()
	var opps []domain.Opportunity

	for i := 0; i < len(observations); i++ {
		for j := i + 1; j < len(observations); j++ {
			a, b := observations[i], observations[j]
			if a.Pair != b.Pair || a.Venue == b.Venue {
				continue
			}

			buy, sell := a, b
			if sell.Price < buy.Price {
				buy, sell = sell, buy
			}
			if buy.Price == sell.Price {
				continue
			}

			profit := (sell.Price - buy.Price) / buy.Price
			if profit < d.cfg.MinProfitThreshold {
				continue
			}

			opp := domain.Opportunity{
				ID:              uuid.Must(uuid.NewRandom()).String(),
				Buy:             buy,
				Sell:            sell,
				ProfitFraction:  profit,
				EstimatedProfit: profit * d.cfg.TradeNotional,
				DetectedAt:      now,
			}
			opps = append(opps, opp)

			d.logger.DebugContext(ctx, "opportunity detected",
				slog.String("id", opp.ID),
				slog.String("pair", buy.Pair),
				slog.String("buy_venue", buy.Venue),
				slog.String("sell_venue", sell.Venue),
				slog.Float64("profit_fraction", profit),
			)
		}
	}

	if len(opps) > 0 {
		d.found.Add(int64(len(opps)))
		d.logger.InfoContext(ctx, "analysis complete",
			slog.Int("observations", len(observations)),
			slog.Int("opportunities", len(opps)),
		)
	}

	return opps
}

// Stats returns a snapshot of the detector's counters.
func (d *Detector) Stats() domain.AnalyzerStats {
	return domain.AnalyzerStats{
		Active:             d.active.Load(),
		OpportunitiesFound: d.found.Load(),
		MinThreshold:       d.cfg.MinProfitThreshold,
	}
}
