package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/solutionsscriptware-cmd/billflow/logger"
)

const statsCacheKey = "billflow:dashboard:stats"

// StatsCache holds the last computed dashboard stats. Implementations never
// fail the caller: a broken cache behaves like an empty one.
type StatsCache interface {
	Get(ctx context.Context) (*DashboardStats, bool)
	Set(ctx context.Context, stats *DashboardStats)
	Invalidate(ctx context.Context)
}

// NewStatsCache returns a Redis-backed cache, or a no-op cache when rdb is nil.
func NewStatsCache(rdb *redis.Client, ttl time.Duration) StatsCache {
	if rdb == nil {
		return noopCache{}
	}
	return &redisStatsCache{
		rdb: rdb,
		ttl: ttl,
		log: logger.WithComponent("stats-cache"),
	}
}

type redisStatsCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

func (c *redisStatsCache) Get(ctx context.Context) (*DashboardStats, bool) {
	raw, err := c.rdb.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("Failed to read cached stats")
		}
		return nil, false
	}

	var stats DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.log.Warn().Err(err).Msg("Discarding undecodable cached stats")
		return nil, false
	}
	return &stats, true
}

func (c *redisStatsCache) Set(ctx context.Context, stats *DashboardStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to encode stats")
		return
	}
	if err := c.rdb.Set(ctx, statsCacheKey, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to cache stats")
	}
}

func (c *redisStatsCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, statsCacheKey).Err(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to invalidate cached stats")
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context) (*DashboardStats, bool) { return nil, false }
func (noopCache) Set(context.Context, *DashboardStats)        {}
func (noopCache) Invalidate(context.Context)                  {}
