package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse/ppc-insights/internal/domain"
)

func setupCache(t *testing.T) (*AttributionCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewAttributionCache(client, 5*time.Minute), mr
}

func sampleResult(clientID string, lookbackDays int) *domain.AttributionResult {
	return &domain.AttributionResult{
		ClientID:     clientID,
		LookbackDays: lookbackDays,
		BaselineROAS: 3.0,
		ActualROAS:   3.2,
		TotalChange:  0.2,
		Flags:        []string{domain.FlagCleanAttribution},
		Reconciles:   true,
	}
}

func TestAttributionCacheRoundTrip(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	assert.Nil(t, c.Get(ctx, "acme", 30), "cold cache should miss")

	c.Set(ctx, sampleResult("acme", 30))

	got := c.Get(ctx, "acme", 30)
	require.NotNil(t, got)
	assert.Equal(t, "acme", got.ClientID)
	assert.Equal(t, 3.2, got.ActualROAS)
	assert.True(t, got.Reconciles)
}

func TestAttributionCacheKeyedByLookback(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, sampleResult("acme", 30))

	assert.NotNil(t, c.Get(ctx, "acme", 30))
	assert.Nil(t, c.Get(ctx, "acme", 60), "different lookback is a different entry")
	assert.Nil(t, c.Get(ctx, "other", 30), "different client is a different entry")
}

func TestAttributionCacheInvalidateClient(t *testing.T) {
	c, _ := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, sampleResult("acme", 30))
	c.Set(ctx, sampleResult("acme", 60))
	c.Set(ctx, sampleResult("other", 30))

	c.InvalidateClient(ctx, "acme")

	assert.Nil(t, c.Get(ctx, "acme", 30))
	assert.Nil(t, c.Get(ctx, "acme", 60))
	assert.NotNil(t, c.Get(ctx, "other", 30), "other clients must survive invalidation")
}

func TestAttributionCacheExpiry(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	c.Set(ctx, sampleResult("acme", 30))
	mr.FastForward(10 * time.Minute)

	assert.Nil(t, c.Get(ctx, "acme", 30), "entry should expire after the TTL")
}

func TestAttributionCacheCorruptEntry(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("attribution:acme:30", "not json"))
	assert.Nil(t, c.Get(ctx, "acme", 30), "corrupt entry degrades to a miss")
}
