package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements LocalStorage with one hash per browser.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to the Redis server at rawURL.
func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	slog.Info("redis connected", "addr", opt.Addr, "db", opt.DB)
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

// Close closes the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

func redisKey(browserID string) string {
	return "quizmaster:ls:" + browserKey(browserID)
}

// GetItem returns the value stored under key.
func (r *Redis) GetItem(ctx context.Context, browserID, key string) (string, bool, error) {
	v, err := r.rdb.HGet(ctx, redisKey(browserID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetItem stores key and refreshes the hash TTL.
func (r *Redis) SetItem(ctx context.Context, browserID, key, value string) error {
	k := redisKey(browserID)
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, k, key, value)
	pipe.Expire(ctx, k, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// RemoveItem deletes key.
func (r *Redis) RemoveItem(ctx context.Context, browserID, key string) error {
	return r.rdb.HDel(ctx, redisKey(browserID), key).Err()
}

// Clear deletes the browser's hash.
func (r *Redis) Clear(ctx context.Context, browserID string) error {
	return r.rdb.Del(ctx, redisKey(browserID)).Err()
}
