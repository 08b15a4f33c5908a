// Package cache provides a Redis-backed cache for market detail lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polydash/polydash/internal/model"
)

// DefaultTTL bounds how stale a cached market detail may be.
const DefaultTTL = 60 * time.Second

// Cache stores market details keyed by slug. A nil *Cache is a no-op, so
// callers don't have to branch on whether caching is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Cache from a Redis URL (redis://host:port/db). ttl <= 0
// uses DefaultTTL.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}, nil
}

// GetDetail retrieves a cached market detail. The second return is false
// on miss or any Redis error.
func (c *Cache) GetDetail(ctx context.Context, slug string) (model.MarketDetail, bool) {
	if c == nil {
		return model.MarketDetail{}, false
	}

	// A Redis error looks like a miss; the serving path falls through
	// to the upstream either way.
	data, err := c.client.Get(ctx, detailKey(slug)).Bytes()
	if err != nil {
		return model.MarketDetail{}, false
	}

	var detail model.MarketDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return model.MarketDetail{}, false
	}
	return detail, true
}

// SetDetail stores a market detail. Errors are reported but a failed
// write never blocks serving.
func (c *Cache) SetDetail(ctx context.Context, slug string, detail model.MarketDetail) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal market detail: %w", err)
	}

	return c.client.Set(ctx, detailKey(slug), data, c.ttl).Err()
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func detailKey(slug string) string {
	return "detail:" + slug
}
