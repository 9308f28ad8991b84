package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbs-network/twap-engine/internal/domain"
)

const testToken = "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"

func TestPriceServiceFreshCacheHit(t *testing.T) {
	feed := &fakeFeed{prices: map[string]string{testToken: "2000"}}
	cache := newFakePriceCache()
	require.NoError(t, cache.SetUSD(context.Background(), testToken, "1995", time.Now()))

	svc := NewPriceService(feed, cache, time.Minute, discardLogger())

	p, err := svc.USDPrice(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, "1995", p.Value)
	assert.False(t, p.Loading)
	assert.Zero(t, feed.calls, "fresh cache must not hit the feed")
}

func TestPriceServiceExpiredCacheRefreshes(t *testing.T) {
	feed := &fakeFeed{prices: map[string]string{testToken: "2000"}}
	cache := newFakePriceCache()
	require.NoError(t, cache.SetUSD(context.Background(), testToken, "1995", time.Now().Add(-2*time.Minute)))

	svc := NewPriceService(feed, cache, time.Minute, discardLogger())

	p, err := svc.USDPrice(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, "2000", p.Value)
	assert.Equal(t, 1, feed.calls)

	// The refreshed quote is cached for the next call.
	v, _, err := cache.GetUSD(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, "2000", v)
}

func TestPriceServiceStaleFallbackOnFeedFailure(t *testing.T) {
	feed := &fakeFeed{err: domain.ErrNetwork}
	cache := newFakePriceCache()
	require.NoError(t, cache.SetUSD(context.Background(), testToken, "1989", time.Now().Add(-time.Hour)))

	svc := NewPriceService(feed, cache, time.Minute, discardLogger())

	p, err := svc.USDPrice(context.Background(), testToken)
	require.NoError(t, err)
	assert.Equal(t, "1989", p.Value, "stale quote beats a failed derivation")
	assert.False(t, p.Loading)
}

func TestPriceServiceNetworkFailureReportsLoading(t *testing.T) {
	feed := &fakeFeed{err: domain.ErrNetwork}
	svc := NewPriceService(feed, newFakePriceCache(), time.Minute, discardLogger())

	p, err := svc.USDPrice(context.Background(), testToken)
	require.NoError(t, err)
	assert.True(t, p.Loading)
	assert.Empty(t, p.Value)
}

func TestPriceServiceUnknownTokenErrors(t *testing.T) {
	feed := &fakeFeed{prices: map[string]string{}}
	svc := NewPriceService(feed, newFakePriceCache(), time.Minute, discardLogger())

	_, err := svc.USDPrice(context.Background(), testToken)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
