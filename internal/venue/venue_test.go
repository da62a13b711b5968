package venue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSourceFactory(t *testing.T) {
	tests := []struct {
		endpoint string
		wantType any
		wantName string
	}{
		{"static://ethereum", &StaticSource{}, "ethereum"},
		{"http://venue-a.example.com", &HTTPSource{}, "venue-a.example.com"},
		{"https://venue-b.example.com/api", &HTTPSource{}, "venue-b.example.com"},
		{"ws://feed.example.com/ticks", &StreamSource{}, "feed.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			src, err := NewSource(tt.endpoint, testLogger())
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, src)
			assert.Equal(t, tt.wantName, src.Name())
		})
	}
}

func TestNewSourceRejectsBadEndpoints(t *testing.T) {
	_, err := NewSource("ftp://example.com", testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported endpoint scheme")

	_, err = NewSource("static://", testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must name a venue")
}

func TestStaticSourceReferenceBook(t *testing.T) {
	src := NewStaticSource("ethereum")

	obs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 1)

	assert.Equal(t, "ethereum", obs[0].Venue)
	assert.Equal(t, "ETH/USDC", obs[0].Pair)
	// Wobble stays within ±0.05% of the reference price.
	assert.InDelta(t, 2000.50, obs[0].Price, 2000.50*0.0006)
	assert.InDelta(t, 1_000_000, obs[0].Liquidity, 1e-9)
	assert.WithinDuration(t, time.Now(), obs[0].Timestamp, time.Second)
	assert.True(t, obs[0].Valid())
}

func TestStaticSourceWobblesBetweenFetches(t *testing.T) {
	src := NewStaticSource("bsc")
	ctx := context.Background()

	first, err := src.Fetch(ctx)
	require.NoError(t, err)
	second, err := src.Fetch(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first[0].Price, second[0].Price)
}

func TestStaticSourceDerivedVenueIsDeterministic(t *testing.T) {
	a := NewStaticSource("some-dex")
	b := NewStaticSource("some-dex")

	obsA, err := a.Fetch(context.Background())
	require.NoError(t, err)
	obsB, err := b.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, obsA, 1)
	assert.Equal(t, obsA[0].Price, obsB[0].Price)
	assert.Equal(t, "ETH/USDC", obsA[0].Pair)
	assert.Greater(t, obsA[0].Price, 0.0)
}

func TestStaticSourceCancelledContext(t *testing.T) {
	src := NewStaticSource("ethereum")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.Fetch(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tickers", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"venue": "uniswap", "pair": "ETH/USDC", "price": 1999.75, "liquidity": 80_000.0, "ts": int64(1_700_000_000_000)},
			{"pair": "BTC/USDC", "price": 64_000.0, "liquidity": 40_000.0},
		})
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, testLogger())
	obs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, "uniswap", obs[0].Venue)
	assert.Equal(t, time.UnixMilli(1_700_000_000_000).UTC(), obs[0].Timestamp)

	// Ticks without a venue are attributed to the source host.
	assert.Equal(t, src.Name(), obs[1].Venue)
	assert.WithinDuration(t, time.Now(), obs[1].Timestamp, time.Second)
}

func TestHTTPSourceErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, testLogger()).Fetch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 500")
	})

	t.Run("bad payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		_, err := NewHTTPSource(srv.URL, testLogger()).Fetch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode tickers")
	})

	t.Run("context cancelled", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := NewHTTPSource(srv.URL, testLogger()).Fetch(ctx)
		require.Error(t, err)
	})
}

func TestStreamSourceSnapshotsLatestTicks(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ticks := []map[string]any{
			{"venue": "streamex", "pair": "ETH/USDC", "price": 2002.0, "liquidity": 5000.0},
			{"venue": "streamex", "pair": "ETH/USDC", "price": 2003.5, "liquidity": 5100.0},
		}
		for _, tk := range ticks {
			data, _ := json.Marshal(tk)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}

		// Hold the connection open; ReadMessage also answers client pings.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	src := NewStreamSource(wsURL, testLogger())
	defer src.Close()

	// The second tick overwrites the first for the same instrument.
	require.Eventually(t, func() bool {
		obs, err := src.Fetch(context.Background())
		return err == nil && len(obs) == 1 && obs[0].Price == 2003.5
	}, 2*time.Second, 20*time.Millisecond)

	obs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "streamex", obs[0].Venue)
	assert.Equal(t, "ETH/USDC", obs[0].Pair)
}

func TestStreamSourceFetchAfterClose(t *testing.T) {
	src := NewStreamSource("ws://127.0.0.1:0/feed", testLogger())
	require.NoError(t, src.Close())

	_, err := src.Fetch(context.Background())
	require.Error(t, err)
}
