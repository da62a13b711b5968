package domain

import (
	"fmt"
	"time"
)

// Opportunity is a qualifying price discrepancy between two observations of
// the same pair on two different venues. Buy is always the lower-priced side
// and Sell the higher-priced side; the detector discards pairs below its
// profit threshold, so an Opportunity's ProfitFraction is never sub-threshold.
// Opportunities are created during one cycle's analysis and either executed
// or discarded before the next cycle; they are never mutated.
type Opportunity struct {
	ID              string      `json:"id"`
	Buy             Observation `json:"buy"`
	Sell            Observation `json:"sell"`
	ProfitFraction  float64     `json:"profit_fraction"`  // (sell - buy) / buy
	EstimatedProfit float64     `json:"estimated_profit"` // ProfitFraction * trade notional
	DetectedAt      time.Time   `json:"detected_at"`
}

// String renders the opportunity for logs and notifications.
func (o Opportunity) String() string {
	return fmt.Sprintf("%s -> %s %s: +%.2f%%", o.Buy.Venue, o.Sell.Venue, o.Buy.Pair, o.ProfitFraction*100)
}
