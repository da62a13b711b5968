// Package metrics exposes pipeline counters through Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/omniarb/omniarbbot/internal/domain"
)

// Recorder tracks the pipeline activity the orchestrator reports: cycles,
// scans, opportunities, and settled trades.
type Recorder struct {
	cycles        prometheus.Counter
	cycleErrors   prometheus.Counter
	cycleDuration prometheus.Histogram
	observations  *prometheus.CounterVec
	failedFetches prometheus.Counter
	opportunities prometheus.Counter
	trades        *prometheus.CounterVec
	profit        prometheus.Gauge
}

// New creates a Recorder with all collectors registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "omniarb_cycles_total",
			Help: "Total number of completed pipeline cycles",
		}),
		cycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "omniarb_cycle_errors_total",
			Help: "Total number of cycles aborted by an error",
		}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "omniarb_cycle_duration_seconds",
			Help:    "Duration of full pipeline cycles in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		observations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omniarb_observations_total",
				Help: "Total number of valid market observations collected",
			},
			[]string{"venue"},
		),
		failedFetches: factory.NewCounter(prometheus.CounterOpts{
			Name: "omniarb_failed_fetches_total",
			Help: "Total number of venue fetches that failed during scans",
		}),
		opportunities: factory.NewCounter(prometheus.CounterOpts{
			Name: "omniarb_opportunities_total",
			Help: "Total number of arbitrage opportunities detected",
		}),
		trades: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omniarb_trades_total",
				Help: "Total number of execution attempts by outcome status",
			},
			[]string{"status"},
		),
		profit: factory.NewGauge(prometheus.GaugeOpts{
			Name: "omniarb_realized_profit_usd",
			Help: "Cumulative realized profit across executed and simulated trades",
		}),
	}
}

// RecordCycle records one completed cycle and its duration.
func (r *Recorder) RecordCycle(took time.Duration) {
	r.cycles.Inc()
	r.cycleDuration.Observe(took.Seconds())
}

// RecordCycleError records a cycle aborted by an error.
func (r *Recorder) RecordCycleError() {
	r.cycleErrors.Inc()
}

// RecordScan records the observations and fetch failures of one scan.
func (r *Recorder) RecordScan(res domain.ScanResult) {
	for _, obs := range res.Observations {
		r.observations.WithLabelValues(obs.Venue).Inc()
	}
	if res.FailedSources > 0 {
		r.failedFetches.Add(float64(res.FailedSources))
	}
}

// RecordOpportunities records how many opportunities one cycle detected.
func (r *Recorder) RecordOpportunities(n int) {
	if n > 0 {
		r.opportunities.Add(float64(n))
	}
}

// RecordOutcome records a settled trade by status and accumulates its profit.
func (r *Recorder) RecordOutcome(out domain.ExecutionOutcome) {
	r.trades.WithLabelValues(string(out.Status)).Inc()
	r.profit.Add(out.RealizedProfit)
}
