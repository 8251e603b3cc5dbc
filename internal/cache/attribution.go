// Package cache holds the Redis-backed result cache for dashboard queries.
//
// Attribution results are pure functions of already-committed data, so they
// are safe to cache; entries are invalidated when a new action batch lands
// for the client and otherwise expire on a short TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adpulse/ppc-insights/internal/domain"
	"github.com/adpulse/ppc-insights/internal/pkg/logger"
)

// AttributionCache is a cache-aside layer over the attribution engine.
type AttributionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAttributionCache creates a cache with the given entry lifetime.
func NewAttributionCache(client *redis.Client, ttl time.Duration) *AttributionCache {
	return &AttributionCache{client: client, ttl: ttl}
}

func attributionKey(clientID string, lookbackDays int) string {
	return fmt.Sprintf("attribution:%s:%d", clientID, lookbackDays)
}

// Get returns the cached result for a (client, lookback) pair, or nil on a
// miss. Cache failures degrade to a miss; the caller recomputes.
func (c *AttributionCache) Get(ctx context.Context, clientID string, lookbackDays int) *domain.AttributionResult {
	data, err := c.client.Get(ctx, attributionKey(clientID, lookbackDays)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		logger.Warn("attribution cache read failed", "client_id", clientID, "error", err)
		return nil
	}

	var res domain.AttributionResult
	if err := json.Unmarshal(data, &res); err != nil {
		logger.Warn("attribution cache entry corrupt", "client_id", clientID, "error", err)
		return nil
	}
	return &res
}

// Set stores a computed result. Failures are logged and swallowed; the cache
// is never load-bearing.
func (c *AttributionCache) Set(ctx context.Context, res *domain.AttributionResult) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	key := attributionKey(res.ClientID, res.LookbackDays)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("attribution cache write failed", "client_id", res.ClientID, "error", err)
	}
}

// InvalidateClient drops every cached result for a client. Called when an
// action batch is logged or undone, since both change the decision-impact
// input.
func (c *AttributionCache) InvalidateClient(ctx context.Context, clientID string) {
	keys, err := c.client.Keys(ctx, fmt.Sprintf("attribution:%s:*", clientID)).Result()
	if err != nil {
		logger.Warn("attribution cache invalidation scan failed", "client_id", clientID, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("attribution cache invalidation failed", "client_id", clientID, "error", err)
	}
}
