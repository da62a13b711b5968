package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omniarb/omniarbbot/internal/domain"
)

// OpportunityFound notifies operators about a detected arbitrage spread.
// Delivery failures are logged, never propagated; a lost notification must
// not disturb the cycle.
func (n *Notifier) OpportunityFound(ctx context.Context, opp domain.Opportunity) {
	message := fmt.Sprintf(
		"%s: buy %s @ %.4f, sell %s @ %.4f\nspread %.2f%%, est. profit $%.2f",
		opp.Buy.Pair,
		opp.Buy.Venue, opp.Buy.Price,
		opp.Sell.Venue, opp.Sell.Price,
		opp.ProfitFraction*100,
		opp.EstimatedProfit,
	)
	n.publishLogged(ctx, EventOpportunity, "Arbitrage opportunity", message)
}

// TradeSettled notifies operators about a settled execution attempt.
func (n *Notifier) TradeSettled(ctx context.Context, out domain.ExecutionOutcome) {
	var title string
	switch out.Status {
	case domain.StatusSuccess:
		title = "Trade executed"
	case domain.StatusSimulated:
		title = "Trade simulated"
	default:
		title = "Trade failed"
	}

	message := fmt.Sprintf(
		"%s: %s -> %s\nstatus %s, profit $%.2f",
		out.Opportunity.Buy.Pair,
		out.Opportunity.Buy.Venue,
		out.Opportunity.Sell.Venue,
		out.Status,
		out.RealizedProfit,
	)
	if out.TxRef != "" {
		message += "\ntx " + out.TxRef
	}
	n.publishLogged(ctx, EventTradeExecuted, title, message)
}

// CycleError notifies operators that a pipeline cycle aborted.
func (n *Notifier) CycleError(ctx context.Context, cycle int64, err error) {
	n.publishLogged(ctx, EventCycleError, "Cycle error", fmt.Sprintf("cycle %d: %v", cycle, err))
}

func (n *Notifier) publishLogged(ctx context.Context, event Event, title, message string) {
	if err := n.Publish(ctx, event, title, message); err != nil {
		n.logger.WarnContext(ctx, "notification delivery failed",
			slog.String("event", string(event)),
			slog.String("error", err.Error()),
		)
	}
}
