package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/pkg/config"
)

// NewRedis returns a configured Redis client after verifying connectivity.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return client, nil
}

// Optional connects to Redis when a component asked for it and returns nil
// when Redis is unreachable, so callers can fall back to in-memory stores.
func Optional(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := NewRedis(ctx, cfg)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory fallback", zap.Error(err))
		return nil
	}
	return client
}
