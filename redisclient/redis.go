// Package redisclient constructs the shared go-redis client backing the
// cache facade.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/autofi/ai-engine/config"
	"github.com/redis/go-redis/v9"
)

// New creates a Redis client from the provided config. Returns an error
// if the Redis URL cannot be parsed.
func New(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opt), nil
}

// Ping verifies connectivity with a short timeout, used during startup and
// by the /health endpoint.
func Ping(rdb *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return rdb.Ping(ctx).Err()
}
