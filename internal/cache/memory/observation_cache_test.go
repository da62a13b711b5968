package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniarb/omniarbbot/internal/domain"
)

func obs(venue, pair string, price float64) domain.Observation {
	return domain.Observation{
		Venue:     venue,
		Pair:      pair,
		Price:     price,
		Liquidity: 1000,
		Timestamp: time.Now().UTC(),
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New()
	ctx := context.Background()

	want := obs("ethereum", "ETH/USDC", 2000.50)
	require.NoError(t, c.Put(ctx, want))

	got, err := c.Get(ctx, "ethereum", "ETH/USDC")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetMissReturnsErrNotFound(t *testing.T) {
	c := New()

	_, err := c.Get(context.Background(), "ethereum", "BTC/USDC")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPutOverwritesSameSlot(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, obs("bsc", "ETH/USDC", 2001.25)))
	require.NoError(t, c.Put(ctx, obs("bsc", "ETH/USDC", 2010.00)))

	got, err := c.Get(ctx, "bsc", "ETH/USDC")
	require.NoError(t, err)
	assert.InDelta(t, 2010.00, got.Price, 1e-9)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListIsSortedByKey(t *testing.T) {
	c := New()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, obs("zeta", "ETH/USDC", 1)))
	require.NoError(t, c.Put(ctx, obs("alpha", "ETH/USDC", 2)))
	require.NoError(t, c.Put(ctx, obs("alpha", "BTC/USDC", 3)))

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha:BTC/USDC", list[0].Key())
	assert.Equal(t, "alpha:ETH/USDC", list[1].Key())
	assert.Equal(t, "zeta:ETH/USDC", list[2].Key())
}

func TestConcurrentAccess(t *testing.T) {
	c := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				venue := fmt.Sprintf("venue-%d", n%4)
				_ = c.Put(ctx, obs(venue, "ETH/USDC", float64(j)))
				_, _ = c.Get(ctx, venue, "ETH/USDC")
				_, _ = c.List(ctx)
			}
		}(i)
	}
	wg.Wait()

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 4)
}
