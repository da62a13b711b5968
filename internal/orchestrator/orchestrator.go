// Package orchestrator drives the observe, analyze, execute pipeline. It owns
// the cycle loop, activates and deactivates the stages as a unit, and keeps
// the session counters reported by the status API.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omniarb/omniarbbot/internal/domain"
)

const (
	// defaultScanInterval paces the cycle loop when no interval is configured.
	defaultScanInterval = 5 * time.Second

	// maxOppsPerCycle caps how many opportunities a single cycle executes.
	// Opportunities past the cap wait for a later cycle with fresh prices.
	maxOppsPerCycle = 3
)

// Stage is the lifecycle contract shared by every pipeline component.
// Activate and Deactivate must be idempotent.
type Stage interface {
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

// Observer collects market observations from the configured venues.
type Observer interface {
	Stage
	Scan(ctx context.Context) (domain.ScanResult, error)
	Stats() domain.ObserverStats
}

// Analyzer turns a set of observations into arbitrage opportunities.
type Analyzer interface {
	Stage
	Analyze(ctx context.Context, observations []domain.Observation) []domain.Opportunity
	Stats() domain.AnalyzerStats
}

// Executor settles a single opportunity and reports the outcome.
type Executor interface {
	Stage
	ExecuteOne(ctx context.Context, opp domain.Opportunity) domain.ExecutionOutcome
	Stats() domain.ExecutorStats
}

// Metrics receives per-cycle measurements. All methods must be safe for
// concurrent use.
type Metrics interface {
	RecordCycle(took time.Duration)
	RecordCycleError()
	RecordScan(res domain.ScanResult)
	RecordOpportunities(n int)
	RecordOutcome(out domain.ExecutionOutcome)
}

// Events receives pipeline milestones for operator-facing delivery. Event
// delivery must never block or fail the cycle, so implementations absorb
// their own errors.
type Events interface {
	OpportunityFound(ctx context.Context, opp domain.Opportunity)
	TradeSettled(ctx context.Context, out domain.ExecutionOutcome)
	CycleError(ctx context.Context, cycle int64, err error)
}

// Orchestrator coordinates the three pipeline stages through timed cycles.
// A cycle scans all venues, detects opportunities, and executes up to
// maxOppsPerCycle of them in arrival order.
type Orchestrator struct {
	observer     Observer
	analyzer     Analyzer
	executor     Executor
	scanInterval time.Duration
	metrics      Metrics
	events       Events
	logger       *slog.Logger

	running     atomic.Bool
	cycles      atomic.Int64
	cycleErrors atomic.Int64

	// mu guards the handle of the loop currently driving cycles, so
	// Deactivate can stop it and wait for it to exit.
	mu         sync.Mutex
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// New creates an Orchestrator over the given stages. A nil metrics or events
// hook disables that concern. A non-positive scanInterval falls back to the
// default.
func New(
	observer Observer,
	analyzer Analyzer,
	executor Executor,
	scanInterval time.Duration,
	metrics Metrics,
	events Events,
	logger *slog.Logger,
) *Orchestrator {
	if scanInterval <= 0 {
		scanInterval = defaultScanInterval
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if events == nil {
		events = nopEvents{}
	}
	return &Orchestrator{
		observer:     observer,
		analyzer:     analyzer,
		executor:     executor,
		scanInterval: scanInterval,
		metrics:      metrics,
		events:       events,
		logger:       logger.With(slog.String("component", "orchestrator")),
	}
}

// Activate brings the pipeline up, starting stages in flow order: observer,
// then analyzer, then executor. If any stage fails, the stages already
// started are brought back down and the pipeline stays inactive. Calling
// Activate on a running pipeline is a no-op.
func (o *Orchestrator) Activate(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return nil
	}

	if err := o.observer.Activate(ctx); err != nil {
		o.running.Store(false)
		return fmt.Errorf("orchestrator: activate observer: %w", err)
	}
	if err := o.analyzer.Activate(ctx); err != nil {
		o.rollback(ctx, o.observer)
		return fmt.Errorf("orchestrator: activate analyzer: %w", err)
	}
	if err := o.executor.Activate(ctx); err != nil {
		o.rollback(ctx, o.observer, o.analyzer)
		return fmt.Errorf("orchestrator: activate executor: %w", err)
	}

	o.logger.InfoContext(ctx, "pipeline activated")
	return nil
}

func (o *Orchestrator) rollback(ctx context.Context, stages ...Stage) {
	for _, s := range stages {
		if err := s.Deactivate(ctx); err != nil {
			o.logger.WarnContext(ctx, "rollback deactivation failed",
				slog.String("error", err.Error()),
			)
		}
	}
	o.running.Store(false)
}

// Deactivate brings the pipeline down from any state. A running cycle loop
// is stopped and waited for first, then the stages are deactivated in
// activation order. Every stage is attempted even if an earlier one fails;
// failures are combined into a single error. Calling Deactivate on a stopped
// pipeline is a no-op.
func (o *Orchestrator) Deactivate(ctx context.Context) error {
	if !o.running.CompareAndSwap(true, false) {
		return nil
	}

	o.mu.Lock()
	cancel, done := o.loopCancel, o.loopDone
	o.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}

	var errs []string
	for _, st := range []struct {
		name  string
		stage Stage
	}{
		{"observer", o.observer},
		{"analyzer", o.analyzer},
		{"executor", o.executor},
	} {
		if err := st.stage.Deactivate(ctx); err != nil {
			o.logger.WarnContext(ctx, "stage deactivation failed",
				slog.String("stage", st.name),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", st.name, err))
		}
	}

	o.logger.InfoContext(ctx, "pipeline deactivated")

	if len(errs) > 0 {
		return fmt.Errorf("orchestrator: deactivate: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RunCycle performs one full observe, analyze, execute pass. It is a no-op
// when the pipeline is inactive. Scan failures abort the cycle; execution
// failures are outcomes, not errors, so the cycle completes.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	if !o.running.Load() {
		return nil
	}

	start := time.Now()
	cycle := o.cycles.Add(1)
	log := o.logger.With(slog.Int64("cycle", cycle))

	// 1. Observe every venue.
	res, err := o.observer.Scan(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown landed mid-scan; not a pipeline fault.
			log.DebugContext(ctx, "cycle abandoned during shutdown")
			return nil
		}
		o.cycleErrors.Add(1)
		o.metrics.RecordCycleError()
		o.events.CycleError(ctx, cycle, err)
		return fmt.Errorf("orchestrator: cycle %d scan: %w", cycle, err)
	}
	o.metrics.RecordScan(res)
	if res.Empty() {
		log.DebugContext(ctx, "cycle ended: no observations")
		o.metrics.RecordCycle(time.Since(start))
		return nil
	}

	// 2. Detect opportunities across the fresh observations.
	opps := o.analyzer.Analyze(ctx, res.Observations)
	o.metrics.RecordOpportunities(len(opps))
	if len(opps) == 0 {
		log.DebugContext(ctx, "cycle ended: no opportunities",
			slog.Int("observations", len(res.Observations)),
		)
		o.metrics.RecordCycle(time.Since(start))
		return nil
	}
	for _, opp := range opps {
		o.events.OpportunityFound(ctx, opp)
	}

	// 3. Execute the head of the list, in arrival order.
	if len(opps) > maxOppsPerCycle {
		log.InfoContext(ctx, "capping executions for this cycle",
			slog.Int("found", len(opps)),
			slog.Int("cap", maxOppsPerCycle),
		)
		opps = opps[:maxOppsPerCycle]
	}

	// A trade already in flight settles even if shutdown lands mid-cycle;
	// cancellation is honored between trades, not inside one.
	execCtx := context.WithoutCancel(ctx)
	for _, opp := range opps {
		if ctx.Err() != nil {
			log.InfoContext(ctx, "cycle interrupted before next trade")
			break
		}
		out := o.executor.ExecuteOne(execCtx, opp)
		o.metrics.RecordOutcome(out)
		o.events.TradeSettled(execCtx, out)
	}

	o.metrics.RecordCycle(time.Since(start))
	log.DebugContext(ctx, "cycle complete", slog.Duration("took", time.Since(start)))
	return nil
}

// Run activates the pipeline and drives cycles until ctx is cancelled or
// Deactivate stops the loop. The first cycle starts immediately; later
// cycles follow the scan interval. Cycle errors are logged and the loop
// continues. Stopping is a clean shutdown, so Run returns nil, and the
// pipeline is deactivated on every exit path.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Activate(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	if o.loopDone != nil {
		o.mu.Unlock()
		cancel()
		return errors.New("orchestrator: cycle loop already running")
	}
	done := make(chan struct{})
	o.loopCancel, o.loopDone = cancel, done
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.loopCancel, o.loopDone = nil, nil
		o.mu.Unlock()
		close(done)
		if err := o.Deactivate(context.WithoutCancel(ctx)); err != nil {
			o.logger.Warn("deactivate after run", slog.String("error", err.Error()))
		}
	}()

	o.logger.InfoContext(ctx, "pipeline loop starting",
		slog.Duration("scan_interval", o.scanInterval),
	)

	// Run immediately on start.
	if runCtx.Err() == nil {
		if err := o.RunCycle(runCtx); err != nil {
			o.logger.ErrorContext(runCtx, "cycle failed", slog.String("error", err.Error()))
		}
	}

	ticker := time.NewTicker(o.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-runCtx.Done():
			o.logSessionSummary()
			o.logger.Info("pipeline loop stopped")
			return nil
		case <-ticker.C:
			if err := o.RunCycle(runCtx); err != nil {
				o.logger.ErrorContext(runCtx, "cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunFor runs the pipeline until d has elapsed or ctx is cancelled, whichever
// comes first. Reaching the deadline is normal completion, not an error.
func (o *Orchestrator) RunFor(ctx context.Context, d time.Duration) error {
	runCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	o.logger.InfoContext(ctx, "bounded run starting", slog.Duration("duration", d))
	return o.Run(runCtx)
}

// Summary reports the pipeline state and the counters of all three stages.
func (o *Orchestrator) Summary() domain.Summary {
	return domain.Summary{
		Running:     o.running.Load(),
		Cycles:      o.cycles.Load(),
		CycleErrors: o.cycleErrors.Load(),
		Observer:    o.observer.Stats(),
		Analyzer:    o.analyzer.Stats(),
		Executor:    o.executor.Stats(),
	}
}

func (o *Orchestrator) logSessionSummary() {
	sum := o.Summary()
	o.logger.Info("session summary",
		slog.Int64("cycles", sum.Cycles),
		slog.Int64("cycle_errors", sum.CycleErrors),
		slog.Int64("observations", sum.Observer.Observations),
		slog.Int64("failed_fetches", sum.Observer.FailedFetches),
		slog.Int64("opportunities", sum.Analyzer.OpportunitiesFound),
		slog.Int64("trades_executed", sum.Executor.TradesExecuted),
		slog.Float64("total_profit", sum.Executor.TotalProfit),
		slog.Int64("simulated_trades", sum.Executor.SimulatedTrades),
		slog.Float64("simulated_profit", sum.Executor.SimulatedProfit),
		slog.Int64("failed_trades", sum.Executor.FailedTrades),
	)
}

type nopMetrics struct{}

func (nopMetrics) RecordCycle(time.Duration)             {}
func (nopMetrics) RecordCycleError()                     {}
func (nopMetrics) RecordScan(domain.ScanResult)          {}
func (nopMetrics) RecordOpportunities(int)               {}
func (nopMetrics) RecordOutcome(domain.ExecutionOutcome) {}

type nopEvents struct{}

func (nopEvents) OpportunityFound(context.Context, domain.Opportunity)  {}
func (nopEvents) TradeSettled(context.Context, domain.ExecutionOutcome) {}
func (nopEvents) CycleError(context.Context, int64, error)              {}
