package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniarb/omniarbbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type notification struct {
	title   string
	message string
}

type fakeSender struct {
	name string
	err  error
	mu   sync.Mutex
	sent []notification
}

func (f *fakeSender) Send(_ context.Context, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, notification{title: title, message: message})
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) last(t *testing.T) notification {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func TestPublishRespectsSubscriptions(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := New([]Sender{sender}, []string{"opportunity"}, testLogger())
	ctx := context.Background()

	require.NoError(t, n.Publish(ctx, EventOpportunity, "Spread", "details"))
	require.NoError(t, n.Publish(ctx, EventCycleError, "Error", "details"))

	// Only the subscribed event reached the sender.
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Spread", sender.sent[0].title)
}

func TestPublishEmptySubscriptionAllowsAll(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := New([]Sender{sender}, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, n.Publish(ctx, EventOpportunity, "a", "x"))
	require.NoError(t, n.Publish(ctx, EventTradeExecuted, "b", "y"))
	require.NoError(t, n.Publish(ctx, EventCycleError, "c", "z"))

	assert.Len(t, sender.sent, 3)
}

func TestPublishIsolatesSenderFailures(t *testing.T) {
	broken := &fakeSender{name: "broken", err: errors.New("unreachable")}
	healthy := &fakeSender{name: "healthy"}
	n := New([]Sender{broken, healthy}, nil, testLogger())

	err := n.Publish(context.Background(), EventOpportunity, "Spread", "details")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	// The failing sender did not block the healthy one.
	assert.Len(t, healthy.sent, 1)
}

func TestPublishWithoutSenders(t *testing.T) {
	n := New(nil, nil, testLogger())
	require.NoError(t, n.Publish(context.Background(), EventOpportunity, "a", "b"))
}

func TestOpportunityFoundMessage(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := New([]Sender{sender}, nil, testLogger())

	n.OpportunityFound(context.Background(), domain.Opportunity{
		ID: "opp-1",
		Buy: domain.Observation{
			Venue: "ethereum", Pair: "ETH/USDC", Price: 2000.50, Timestamp: time.Now().UTC(),
		},
		Sell: domain.Observation{
			Venue: "bsc", Pair: "ETH/USDC", Price: 2015.50, Timestamp: time.Now().UTC(),
		},
		ProfitFraction:  0.0075,
		EstimatedProfit: 7.5,
	})

	got := sender.last(t)
	assert.Equal(t, "Arbitrage opportunity", got.title)
	assert.Contains(t, got.message, "ETH/USDC")
	assert.Contains(t, got.message, "buy ethereum")
	assert.Contains(t, got.message, "sell bsc")
	assert.Contains(t, got.message, "0.75%")
	assert.Contains(t, got.message, "$7.50")
}

func TestTradeSettledTitles(t *testing.T) {
	cases := []struct {
		status domain.OutcomeStatus
		title  string
	}{
		{domain.StatusSuccess, "Trade executed"},
		{domain.StatusSimulated, "Trade simulated"},
		{domain.StatusFailed, "Trade failed"},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			sender := &fakeSender{name: "fake"}
			n := New([]Sender{sender}, nil, testLogger())

			n.TradeSettled(context.Background(), domain.ExecutionOutcome{
				Opportunity: domain.Opportunity{
					Buy:  domain.Observation{Venue: "ethereum", Pair: "ETH/USDC", Price: 2000},
					Sell: domain.Observation{Venue: "bsc", Pair: "ETH/USDC", Price: 2015},
				},
				Status:         tc.status,
				RealizedProfit: 9.2,
			})

			assert.Equal(t, tc.title, sender.last(t).title)
		})
	}
}

func TestTradeSettledIncludesTxRef(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := New([]Sender{sender}, nil, testLogger())

	n.TradeSettled(context.Background(), domain.ExecutionOutcome{
		Opportunity: domain.Opportunity{
			Buy:  domain.Observation{Venue: "ethereum", Pair: "ETH/USDC"},
			Sell: domain.Observation{Venue: "bsc", Pair: "ETH/USDC"},
		},
		Status: domain.StatusSuccess,
		TxRef:  "0xdeadbeef",
	})

	assert.Contains(t, sender.last(t).message, "tx 0xdeadbeef")
}

func TestCycleErrorAbsorbsDeliveryFailure(t *testing.T) {
	broken := &fakeSender{name: "broken", err: errors.New("unreachable")}
	n := New([]Sender{broken}, nil, testLogger())

	// Must not panic or propagate the sender failure.
	n.CycleError(context.Background(), 7, errors.New("all venues down"))
}

func TestTelegramSenderPosts(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewTelegramSender("token123", "chat456")
	sender.baseURL = srv.URL

	require.NoError(t, sender.Send(context.Background(), "Alert", "body text"))
	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "chat456", gotBody["chat_id"])
	assert.Equal(t, "*Alert*\nbody text", gotBody["text"])
	assert.Equal(t, "Markdown", gotBody["parse_mode"])
	assert.Equal(t, "telegram", sender.Name())
}

func TestTelegramSenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewTelegramSender("token123", "chat456")
	sender.baseURL = srv.URL

	err := sender.Send(context.Background(), "Alert", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
	assert.Contains(t, err.Error(), "401")
}

func TestDiscordSenderPosts(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)

	require.NoError(t, sender.Send(context.Background(), "Alert", "body text"))
	assert.Equal(t, "**Alert**\nbody text", gotBody["content"])
	assert.Equal(t, "discord", sender.Name())
}

func TestDiscordSenderRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unknown webhook", http.StatusNotFound)
	}))
	defer srv.Close()

	sender := NewDiscordSender(srv.URL)

	err := sender.Send(context.Background(), "Alert", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord")
	assert.Contains(t, err.Error(), "404")
}
