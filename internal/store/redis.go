package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

const (
	redisMaxIdle     = 3
	redisIdleTimeout = 240 * time.Second
	redisOpTimeout   = 5 * time.Second
)

// RedisTier stores blobs in a remote Redis-compatible key-value service.
// Only mounted when a Redis URL is configured for the environment.
type RedisTier struct {
	pool      *redis.Pool
	keyPrefix string
}

// NewRedisTier creates a Redis tier from a redis:// URL.
func NewRedisTier(url, keyPrefix string) *RedisTier {
	return &RedisTier{
		keyPrefix: keyPrefix,
		pool: &redis.Pool{
			MaxIdle:     redisMaxIdle,
			IdleTimeout: redisIdleTimeout,
			DialContext: func(ctx context.Context) (redis.Conn, error) {
				return redis.DialURLContext(ctx, url)
			},
			TestOnBorrow: func(c redis.Conn, t time.Time) error {
				if time.Since(t) < time.Minute {
					return nil
				}
				_, err := c.Do("PING")
				return err
			},
		},
	}
}

func (t *RedisTier) Name() string { return "redis" }

func (t *RedisTier) key(key string) string {
	if t.keyPrefix == "" {
		return key
	}
	return t.keyPrefix + ":" + key
}

// Get fetches the whole blob stored under key.
func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	conn, err := t.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis dial: %w", err)
	}
	defer conn.Close()

	data, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", t.key(key)))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return data, nil
}

// Set upserts the whole blob stored under key.
func (t *RedisTier) Set(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	conn, err := t.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis dial: %w", err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "SET", t.key(key), data); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Close releases pooled connections.
func (t *RedisTier) Close() error {
	return t.pool.Close()
}
