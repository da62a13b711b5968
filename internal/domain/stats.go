package domain

// ObserverStats is the observer's reporting snapshot.
type ObserverStats struct {
	Active        bool  `json:"active"`
	Sources       int   `json:"sources"`
	ScansRun      int64 `json:"scans_run"`
	Observations  int64 `json:"observations"`
	FailedFetches int64 `json:"failed_fetches"`
}

// AnalyzerStats is the detector's reporting snapshot.
type AnalyzerStats struct {
	Active             bool    `json:"active"`
	OpportunitiesFound int64   `json:"opportunities_found"`
	MinThreshold       float64 `json:"min_threshold"`
}

// ExecutorStats is the executor's reporting snapshot. TradesExecuted and
// TotalProfit count real submissions only; simulated runs are tracked in
// their own counters and never folded into executed totals.
type ExecutorStats struct {
	Active          bool    `json:"active"`
	AutoTrading     bool    `json:"auto_trading"`
	TradesExecuted  int64   `json:"trades_executed"`
	TotalProfit     float64 `json:"total_profit"`
	AverageProfit   float64 `json:"average_profit"`
	SimulatedTrades int64   `json:"simulated_trades"`
	SimulatedProfit float64 `json:"simulated_profit"`
	FailedTrades    int64   `json:"failed_trades"`
}

// Summary is the orchestrator's combined reporting surface: its own cycle
// counters plus the per-stage snapshots.
type Summary struct {
	Running     bool          `json:"running"`
	Cycles      int64         `json:"cycles"`
	CycleErrors int64         `json:"cycle_errors"`
	Observer    ObserverStats `json:"observer"`
	Analyzer    AnalyzerStats `json:"analyzer"`
	Executor    ExecutorStats `json:"executor"`
}
