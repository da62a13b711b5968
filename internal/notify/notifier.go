// Package notify delivers pipeline events to operator channels. Detected
// opportunities, settled trades, and cycle failures are fanned out to every
// configured sender, filtered by the event types the operator subscribed to.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Event identifies a class of pipeline notification.
type Event string

const (
	// EventOpportunity fires when the analyzer detects an arbitrage spread.
	EventOpportunity Event = "opportunity"
	// EventTradeExecuted fires when the executor settles a trade, whatever
	// the outcome.
	EventTradeExecuted Event = "trade_executed"
	// EventCycleError fires when a pipeline cycle aborts.
	EventCycleError Event = "cycle_error"
)

// Sender delivers a single notification over one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel, e.g. "telegram".
	Name() string
}

// Notifier fans notifications out to all senders. Only events in the
// subscribed set are forwarded; an empty set subscribes to everything.
// A failing sender never blocks delivery to the others.
type Notifier struct {
	senders    []Sender
	subscribed map[Event]bool
	logger     *slog.Logger
}

// New creates a Notifier delivering to the given senders. The events slice
// selects which event types pass the filter; leave it empty to receive all.
func New(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	subscribed := make(map[Event]bool, len(events))
	for _, e := range events {
		subscribed[Event(strings.TrimSpace(e))] = true
	}
	return &Notifier{
		senders:    senders,
		subscribed: subscribed,
		logger:     logger.With(slog.String("component", "notifier")),
	}
}

// Publish delivers a notification to all senders if the event type passes
// the subscription filter. Sender failures are combined into one error.
func (n *Notifier) Publish(ctx context.Context, event Event, title, message string) error {
	if len(n.subscribed) > 0 && !n.subscribed[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", string(event)))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var failures []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			failures = append(failures, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(failures) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(failures), strings.Join(failures, "; "))
	}
	return nil
}
