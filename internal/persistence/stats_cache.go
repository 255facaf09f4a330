package persistence

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/deskline/helpdesk-service/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const dashboardStatsKey = "helpdesk:dashboard:stats"

// StatsCache stores dashboard statistics in Redis.
type StatsCache struct {
	client *redis.Client
	key    string
}

// NewStatsCache returns a cache on the client, or nil when Redis is disabled.
func NewStatsCache(r *Redis) *StatsCache {
	if !r.Enabled() {
		return nil
	}
	return &StatsCache{client: r.Client, key: dashboardStatsKey}
}

// Get returns the cached stats; a miss reports false without error.
func (c *StatsCache) Get(ctx context.Context) (*domain.DashboardStats, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var stats domain.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false, err
	}
	return &stats, true, nil
}

// Set stores stats for ttl.
func (c *StatsCache) Set(ctx context.Context, stats *domain.DashboardStats, ttl time.Duration) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, raw, ttl).Err()
}

// Invalidate drops the cached stats.
func (c *StatsCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
