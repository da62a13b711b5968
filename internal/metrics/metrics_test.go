package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniarb/omniarbbot/internal/domain"
)

func TestRecordCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordCycle(120 * time.Millisecond)
	r.RecordCycle(80 * time.Millisecond)
	r.RecordCycleError()

	assert.InDelta(t, 2, testutil.ToFloat64(r.cycles), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.cycleErrors), 1e-9)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, fam := range families {
		if fam.GetName() != "omniarb_cycle_duration_seconds" {
			continue
		}
		found = true
		require.Len(t, fam.GetMetric(), 1)
		hist := fam.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(2), hist.GetSampleCount())
		assert.InDelta(t, 0.2, hist.GetSampleSum(), 1e-9)
	}
	assert.True(t, found, "cycle duration histogram not registered")
}

func TestRecordScanCountsPerVenue(t *testing.T) {
	r := New(prometheus.NewRegistry())
	now := time.Now().UTC()

	r.RecordScan(domain.ScanResult{
		Observations: []domain.Observation{
			{Venue: "ethereum", Pair: "ETH/USDC", Price: 2000, Timestamp: now},
			{Venue: "ethereum", Pair: "BTC/USDC", Price: 60000, Timestamp: now},
			{Venue: "bsc", Pair: "ETH/USDC", Price: 2001, Timestamp: now},
		},
		FailedSources: 1,
	})

	assert.InDelta(t, 2, testutil.ToFloat64(r.observations.WithLabelValues("ethereum")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.observations.WithLabelValues("bsc")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.failedFetches), 1e-9)
}

func TestRecordOutcomeByStatus(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordOutcome(domain.ExecutionOutcome{Status: domain.StatusSimulated, RealizedProfit: 9.5})
	r.RecordOutcome(domain.ExecutionOutcome{Status: domain.StatusSuccess, RealizedProfit: 9.2})
	r.RecordOutcome(domain.ExecutionOutcome{Status: domain.StatusFailed})

	assert.InDelta(t, 1, testutil.ToFloat64(r.trades.WithLabelValues("simulated")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.trades.WithLabelValues("success")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.trades.WithLabelValues("failed")), 1e-9)
	assert.InDelta(t, 18.7, testutil.ToFloat64(r.profit), 1e-9)
}

func TestRecordOpportunities(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordOpportunities(0)
	r.RecordOpportunities(3)
	r.RecordOpportunities(2)

	assert.InDelta(t, 5, testutil.ToFloat64(r.opportunities), 1e-9)
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())

	a.RecordCycle(time.Millisecond)
	assert.InDelta(t, 1, testutil.ToFloat64(a.cycles), 1e-9)
	assert.InDelta(t, 0, testutil.ToFloat64(b.cycles), 1e-9)
}
