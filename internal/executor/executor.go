// Package executor implements the trade execution stage: the decision ladder
// from detected opportunity to a terminal outcome, and the submission
// interface production backends plug into.
package executor

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omniarb/omniarbbot/internal/domain"
	"github.com/omniarb/omniarbbot/internal/wallet"
)

const (
	// simulatedFillFactor discounts a simulated fill against the estimate.
	simulatedFillFactor = 0.95

	// executedFillFactor discounts a real fill for fees and gas drag.
	executedFillFactor = 0.92
)

// Submitter is the interface through which the executor submits accepted
// trades to a venue backend.
type Submitter interface {
	Submit(ctx context.Context, order Order) (Receipt, error)
}

// Order is the submission request derived from an opportunity.
type Order struct {
	OpportunityID string
	Pair          string
	BuyVenue      string
	SellVenue     string
	BuyPrice      float64
	SellPrice     float64
	Amount        float64
	GasLimit      int64
}

// Receipt is a backend's confirmation of a submitted order.
type Receipt struct {
	TxRef   string
	GasUsed int64
}

// Config holds the executor's trading parameters.
type Config struct {
	// AutoTrading gates real submission. When false every accepted
	// opportunity resolves as a simulated fill.
	AutoTrading bool

	// MaxTradeAmount is the per-trade size cap passed to the backend.
	MaxTradeAmount float64

	// GasLimit is the resource-cost cap stamped on every order.
	GasLimit int64

	// InterTradeDelay is the pause after each submission in a batch.
	InterTradeDelay time.Duration
}

// Executor turns opportunities into terminal execution outcomes. Failures are
// data, not errors: every path produces an outcome whose status says what
// happened.
type Executor struct {
	cfg       Config
	signer    *wallet.Signer // nil when no credential is configured
	submitter Submitter
	logger    *slog.Logger

	active         atomic.Bool
	tradesExecuted atomic.Int64
	simTrades      atomic.Int64
	failedTrades   atomic.Int64

	mu          sync.Mutex
	totalProfit float64
	simProfit   float64
}

// New creates an Executor. signer may be nil; auto trading then fails closed
// at execution time.
func New(cfg Config, signer *wallet.Signer, submitter Submitter, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:       cfg,
		signer:    signer,
		submitter: submitter,
		logger:    logger.With(slog.String("component", "executor")),
	}
}

// Activate marks the executor active. Idempotent.
func (e *Executor) Activate(_ context.Context) error {
	if e.active.CompareAndSwap(false, true) {
		e.logger.Info("executor activated", slog.Bool("auto_trading", e.cfg.AutoTrading))
	}
	return nil
}

// Deactivate marks the executor inactive. Idempotent.
func (e *Executor) Deactivate(_ context.Context) error {
	if e.active.CompareAndSwap(true, false) {
		e.logger.Info("executor deactivated")
	}
	return nil
}

// ExecuteOne runs one opportunity through the decision ladder and returns its
// terminal outcome.
func (e *Executor) ExecuteOne(ctx context.Context, opp domain.Opportunity) domain.ExecutionOutcome {
	log := e.logger.With(
		slog.String("opportunity_id", opp.ID),
		slog.String("pair", opp.Buy.Pair),
		slog.String("buy_venue", opp.Buy.Venue),
		slog.String("sell_venue", opp.Sell.Venue),
	)

	// 1. Inactive executor fails the trade outright.
	if !e.active.Load() {
		log.Warn("execution refused: executor inactive")
		return e.failed(opp)
	}

	// 2. Without auto trading every accepted opportunity is simulated.
	if !e.cfg.AutoTrading {
		realized := opp.EstimatedProfit * simulatedFillFactor
		e.simTrades.Add(1)
		e.mu.Lock()
		e.simProfit += realized
		e.mu.Unlock()

		log.Info("trade simulated", slog.Float64("realized_profit", realized))
		return domain.ExecutionOutcome{
			Opportunity:    opp,
			Status:         domain.StatusSimulated,
			RealizedProfit: realized,
			CompletedAt:    time.Now().UTC(),
		}
	}

	// 3. Auto trading without a signing credential fails closed.
	if e.signer == nil {
		log.Error("execution refused: auto trading without signing credential")
		return e.failed(opp)
	}

	// 4. Submit through the backend.
	receipt, err := e.submitter.Submit(ctx, Order{
		OpportunityID: opp.ID,
		Pair:          opp.Buy.Pair,
		BuyVenue:      opp.Buy.Venue,
		SellVenue:     opp.Sell.Venue,
		BuyPrice:      opp.Buy.Price,
		SellPrice:     opp.Sell.Price,
		Amount:        e.cfg.MaxTradeAmount,
		GasLimit:      e.cfg.GasLimit,
	})
	if err != nil {
		log.Error("submission failed", slog.String("error", err.Error()))
		return e.failed(opp)
	}

	realized := opp.EstimatedProfit * executedFillFactor
	e.tradesExecuted.Add(1)
	e.mu.Lock()
	e.totalProfit += realized
	e.mu.Unlock()

	log.Info("trade executed",
		slog.String("tx_ref", receipt.TxRef),
		slog.Int64("gas_used", receipt.GasUsed),
		slog.Float64("realized_profit", realized),
	)
	return domain.ExecutionOutcome{
		Opportunity:    opp,
		Status:         domain.StatusSuccess,
		TxRef:          receipt.TxRef,
		GasUsed:        receipt.GasUsed,
		RealizedProfit: realized,
		CompletedAt:    time.Now().UTC(),
	}
}

// ExecuteBatch executes opportunities sequentially in input order, pausing
// InterTradeDelay after every submission so consecutive orders never race
// each other at the venue.
func (e *Executor) ExecuteBatch(ctx context.Context, opps []domain.Opportunity) []domain.ExecutionOutcome {
	outcomes := make([]domain.ExecutionOutcome, 0, len(opps))
	for _, opp := range opps {
		outcomes = append(outcomes, e.ExecuteOne(ctx, opp))
		e.pause(ctx)
	}
	return outcomes
}

// Stats returns a snapshot of the executor's counters. AverageProfit divides
// by max(1, trades) so an idle executor reports zero instead of NaN.
func (e *Executor) Stats() domain.ExecutorStats {
	executed := e.tradesExecuted.Load()

	e.mu.Lock()
	total := e.totalProfit
	simTotal := e.simProfit
	e.mu.Unlock()

	return domain.ExecutorStats{
		Active:          e.active.Load(),
		AutoTrading:     e.cfg.AutoTrading,
		TradesExecuted:  executed,
		TotalProfit:     total,
		AverageProfit:   total / float64(max(int64(1), executed)),
		SimulatedTrades: e.simTrades.Load(),
		SimulatedProfit: simTotal,
		FailedTrades:    e.failedTrades.Load(),
	}
}

// failed counts and builds a failed outcome with zero realized profit.
func (e *Executor) failed(opp domain.Opportunity) domain.ExecutionOutcome {
	e.failedTrades.Add(1)
	return domain.ExecutionOutcome{
		Opportunity: opp,
		Status:      domain.StatusFailed,
		CompletedAt: time.Now().UTC(),
	}
}

// pause waits the configured inter-trade delay, cut short on cancellation.
func (e *Executor) pause(ctx context.Context) {
	if e.cfg.InterTradeDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(e.cfg.InterTradeDelay):
	}
}
