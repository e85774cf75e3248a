package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/solutionsscriptware-cmd/billflow/logger"
)

// ConnectRedis returns nil when REDIS_ADDR is unset or unreachable; callers
// treat a nil client as "caching disabled".
func ConnectRedis(cfg *Config) *redis.Client {
	log := logger.WithComponent("redis")
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, dashboard caching disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis, caching disabled")
		rdb.Close()
		return nil
	}

	log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	return rdb
}
