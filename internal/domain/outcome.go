package domain

import (
	"fmt"
	"time"
)

// OutcomeStatus is the terminal state of an execution attempt. StatusPending
// exists only while an outcome is under construction inside the executor; by
// the time an ExecutionOutcome reaches a caller its status is terminal.
type OutcomeStatus string

const (
	StatusPending   OutcomeStatus = "pending"
	StatusSimulated OutcomeStatus = "simulated"
	StatusSuccess   OutcomeStatus = "success"
	StatusFailed    OutcomeStatus = "failed"
)

// Terminal reports whether the status is one a caller may observe.
func (s OutcomeStatus) Terminal() bool {
	return s == StatusSimulated || s == StatusSuccess || s == StatusFailed
}

// ExecutionOutcome is the result of attempting to act on one Opportunity.
// TxRef and GasUsed are populated only on StatusSuccess. RealizedProfit is
// zero on StatusFailed and reflects fee drag otherwise, so it may differ from
// the opportunity's estimate.
type ExecutionOutcome struct {
	Opportunity    Opportunity   `json:"opportunity"`
	Status         OutcomeStatus `json:"status"`
	TxRef          string        `json:"tx_ref,omitempty"`
	GasUsed        int64         `json:"gas_used,omitempty"`
	RealizedProfit float64       `json:"realized_profit"`
	CompletedAt    time.Time     `json:"completed_at"`
}

// String renders the outcome for logs.
func (e ExecutionOutcome) String() string {
	return fmt.Sprintf("execution(%s, profit=$%.2f)", e.Status, e.RealizedProfit)
}
