// Package redis provides a Redis session store backend.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fruitsalade/slackfiles/internal/store"
)

// Config holds Redis connection settings.
type Config struct {
	Addr      string        `toml:"addr"`
	Password  string        `toml:"password"`
	DB        int           `toml:"db"`
	KeyPrefix string        `toml:"key_prefix"`
	TTL       time.Duration `toml:"ttl"` // 0 keeps blobs forever
}

// RedisBackend implements store.Backend with one Redis string per key.
type RedisBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to Redis and pings it.
func New(ctx context.Context, cfg Config) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisBackend{client: client, prefix: cfg.KeyPrefix, ttl: cfg.TTL}, nil
}

func (b *RedisBackend) key(key string) string {
	return b.prefix + key
}

// GetObject returns the blob stored under key.
func (b *RedisBackend) GetObject(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// PutObject stores the blob under key with the configured TTL.
func (b *RedisBackend) PutObject(ctx context.Context, key string, data []byte) error {
	if err := b.client.Set(ctx, b.key(key), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// DeleteObject removes the blob stored under key.
func (b *RedisBackend) DeleteObject(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.key(key)).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// Type returns "redis".
func (b *RedisBackend) Type() string { return "redis" }

// Close closes the Redis connection.
func (b *RedisBackend) Close() error { return b.client.Close() }
