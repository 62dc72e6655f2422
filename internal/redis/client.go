package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rehabplatform/scheduling-service/internal/config"
)

// NewRedisClient connects the client used for slot locks. Read/write
// timeouts stay below the lock TTL so a stalled lock call cannot
// outlive the lock it guards.
func NewRedisClient(cfg config.Config) (*redis.Client, error) {
	opTimeout := 2 * time.Second
	if cfg.LockTTL > 0 && cfg.LockTTL < opTimeout {
		opTimeout = cfg.LockTTL
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		DB:           0,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
		PoolSize:     10,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}
