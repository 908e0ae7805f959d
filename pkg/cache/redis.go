package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/guardedai/mediator/pkg/config"
	"github.com/guardedai/mediator/pkg/interfaces"
	"github.com/guardedai/mediator/pkg/logging"
)

// RedisCache implements interfaces.ResponseCache on Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

// RedisOption represents an option for configuring the cache
type RedisOption func(*RedisCache)

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger logging.Logger) RedisOption {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

// NewRedisCache creates a cache from the given configuration and verifies
// connectivity before returning
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, options ...RedisOption) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	cache := &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logging.New(),
	}

	for _, option := range options {
		option(cache)
	}

	return cache, nil
}

// Get retrieves a cached raw response, returning ErrCacheMiss when absent
func (c *RedisCache) Get(ctx context.Context, key string) (*interfaces.InvokeResponse, error) {
	data, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached response: %w", err)
	}

	var response interfaces.InvokeResponse
	if err := json.Unmarshal([]byte(data), &response); err != nil {
		// A corrupt entry is treated as a miss so the caller regenerates it
		c.logger.Warn(ctx, "Discarding corrupt cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, interfaces.ErrCacheMiss
	}

	return &response, nil
}

// Set stores a raw response under the key with the configured TTL
func (c *RedisCache) Set(ctx context.Context, key string, response *interfaces.InvokeResponse) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache response: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
