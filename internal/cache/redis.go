// Package cache holds the Redis-backed profile cache and auth rate limiter.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tunes the Redis connection pool.
type Options struct {
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
}

// DefaultOptions is used when New is called with a zero Options.
var DefaultOptions = Options{
	PoolSize:     10,
	MinIdleConns: 2,
	DialTimeout:  5 * time.Second,
}

// Cache wraps a Redis client.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, redisURL string, opts Options) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opts == (Options{}) {
		opts = DefaultOptions
	}
	opt.PoolSize = opts.PoolSize
	opt.MinIdleConns = opts.MinIdleConns
	opt.DialTimeout = opts.DialTimeout
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
func (c *Cache) Client() *redis.Client {
	return c.client
}
