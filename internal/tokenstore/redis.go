package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores the token under one key, for kiosks that share a login across
// terminals.
type Redis struct {
	rdb *redis.Client
	key string
}

func NewRedis(rdb *redis.Client, key string) *Redis {
	return &Redis{rdb: rdb, key: key}
}

// DialRedis parses a redis:// URL and pings the server once.
func DialRedis(ctx context.Context, url, key string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("tokenstore: redis ping: %w", err)
	}
	return NewRedis(rdb, key), nil
}

func (r *Redis) Load(ctx context.Context) (string, error) {
	v, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("tokenstore: redis get: %w", err)
	}
	return v, nil
}

func (r *Redis) Save(ctx context.Context, token string) error {
	if err := r.rdb.Set(ctx, r.key, token, 0).Err(); err != nil {
		return fmt.Errorf("tokenstore: redis set: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("tokenstore: redis del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
