package arbitrage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniarb/omniarbbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mkObs(venue string, price float64) domain.Observation {
	return domain.Observation{
		Venue:     venue,
		Pair:      "ETH/USDC",
		Price:     price,
		Liquidity: 100_000,
		Timestamp: time.Now().UTC(),
	}
}

func activeDetector(t *testing.T, cfg Config) *Detector {
	t.Helper()
	d := NewDetector(cfg, testLogger())
	require.NoError(t, d.Activate(context.Background()))
	return d
}

func TestAnalyzeDetectsCrossVenueSpread(t *testing.T) {
	// 2000 -> 2015 is 0.75%, clearing a 0.5% threshold.
	d := activeDetector(t, Config{MinProfitThreshold: 0.005, TradeNotional: 1000})

	opps := d.Analyze(context.Background(), []domain.Observation{
		mkObs("ethereum", 2000),
		mkObs("bsc", 2015),
	})

	require.Len(t, opps, 1)
	opp := opps[0]
	assert.Equal(t, "ethereum", opp.Buy.Venue)
	assert.Equal(t, "bsc", opp.Sell.Venue)
	assert.InDelta(t, 0.0075, opp.ProfitFraction, 1e-12)
	assert.InDelta(t, 7.5, opp.EstimatedProfit, 1e-9)
	assert.NotEmpty(t, opp.ID)
	assert.False(t, opp.DetectedAt.IsZero())
	assert.Equal(t, int64(1), d.Stats().OpportunitiesFound)
}

func TestAnalyzeThresholdBoundary(t *testing.T) {
	tests := []struct {
		name      string
		sellPrice float64
		want      int
	}{
		{"below threshold", 2009.9, 0},
		{"exactly at threshold", 2010.0, 1}, // (2010-2000)/2000 == 0.005
		{"above threshold", 2010.1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := activeDetector(t, Config{MinProfitThreshold: 0.005, TradeNotional: 1000})
			opps := d.Analyze(context.Background(), []domain.Observation{
				mkObs("ethereum", 2000),
				mkObs("bsc", tt.sellPrice),
			})
			assert.Len(t, opps, tt.want)
		})
	}
}

func TestAnalyzeIgnoresNonComparablePairs(t *testing.T) {
	d := activeDetector(t, Config{MinProfitThreshold: 0.005, TradeNotional: 1000})
	ctx := context.Background()

	t.Run("same venue", func(t *testing.T) {
		opps := d.Analyze(ctx, []domain.Observation{
			mkObs("ethereum", 2000),
			mkObs("ethereum", 2100),
		})
		assert.Empty(t, opps)
	})

	t.Run("different pairs", func(t *testing.T) {
		a := mkObs("ethereum", 2000)
		b := mkObs("bsc", 64_000)
		b.Pair = "BTC/USDC"
		opps := d.Analyze(ctx, []domain.Observation{a, b})
		assert.Empty(t, opps)
	})

	t.Run("equal prices", func(t *testing.T) {
		opps := d.Analyze(ctx, []domain.Observation{
			mkObs("ethereum", 2000),
			mkObs("bsc", 2000),
		})
		assert.Empty(t, opps)
	})

	assert.Zero(t, d.Stats().OpportunitiesFound)
}

func TestAnalyzeInactiveOrSmallInput(t *testing.T) {
	ctx := context.Background()

	t.Run("inactive", func(t *testing.T) {
		d := NewDetector(Config{MinProfitThreshold: 0.005}, testLogger())
		opps := d.Analyze(ctx, []domain.Observation{
			mkObs("ethereum", 2000),
			mkObs("bsc", 2100),
		})
		assert.Empty(t, opps)
		assert.Zero(t, d.Stats().OpportunitiesFound)
	})

	t.Run("fewer than two observations", func(t *testing.T) {
		d := activeDetector(t, Config{MinProfitThreshold: 0.005})
		assert.Empty(t, d.Analyze(ctx, nil))
		assert.Empty(t, d.Analyze(ctx, []domain.Observation{mkObs("ethereum", 2000)}))
		assert.Zero(t, d.Stats().OpportunitiesFound)
	})
}

func TestAnalyzeBuyIsAlwaysCheaper(t *testing.T) {
	d := activeDetector(t, Config{MinProfitThreshold: 0.001, TradeNotional: 1000})

	// Three venues, three qualifying pairs; every opportunity must buy low.
	opps := d.Analyze(context.Background(), []domain.Observation{
		mkObs("ethereum", 2000),
		mkObs("bsc", 2050),
		mkObs("polygon", 2100),
	})
	require.Len(t, opps, 3)
	for _, opp := range opps {
		assert.Less(t, opp.Buy.Price, opp.Sell.Price)
		assert.Greater(t, opp.ProfitFraction, 0.0)
	}
}

func TestAnalyzeInputOrderIndependence(t *testing.T) {
	obs := []domain.Observation{
		mkObs("ethereum", 2000),
		mkObs("bsc", 2050),
		mkObs("polygon", 2100),
	}
	reversed := []domain.Observation{obs[2], obs[1], obs[0]}

	type edge struct {
		buy, sell string
	}
	collect := func(opps []domain.Opportunity) map[edge]float64 {
		out := make(map[edge]float64, len(opps))
		for _, o := range opps {
			out[edge{o.Buy.Venue, o.Sell.Venue}] = o.ProfitFraction
		}
		return out
	}

	a := activeDetector(t, Config{MinProfitThreshold: 0.001, TradeNotional: 1000})
	b := activeDetector(t, Config{MinProfitThreshold: 0.001, TradeNotional: 1000})

	got := collect(a.Analyze(context.Background(), obs))
	rev := collect(b.Analyze(context.Background(), reversed))
	assert.Equal(t, got, rev)
}

func TestAnalyzeCounterAccumulates(t *testing.T) {
	d := activeDetector(t, Config{MinProfitThreshold: 0.005, TradeNotional: 1000})
	in := []domain.Observation{mkObs("ethereum", 2000), mkObs("bsc", 2100)}

	d.Analyze(context.Background(), in)
	d.Analyze(context.Background(), in)

	assert.Equal(t, int64(2), d.Stats().OpportunitiesFound)
	assert.InDelta(t, 0.005, d.Stats().MinThreshold, 1e-12)
}

func TestNewDetectorDefaults(t *testing.T) {
	d := NewDetector(Config{}, testLogger())
	assert.InDelta(t, 0.01, d.Stats().MinThreshold, 1e-12)
}
