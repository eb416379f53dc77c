package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisBackend implements Backend over a Redis database. The application
// dedicates one Redis DB index to its keys, so Clear can flush it entirely.
type redisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a Backend connected to the given Redis address.
func NewRedisBackend(addr string, db int) Backend {
	opt, err := redis.ParseURL(fmt.Sprintf("redis://%s/%d", addr, db))
	if err != nil {
		// Fallback to simple connection
		opt = &redis.Options{Addr: addr, DB: db}
	}
	return &redisBackend{client: redis.NewClient(opt)}
}

func (b *redisBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := b.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoKey
	}
	return v, err
}

func (b *redisBackend) Set(ctx context.Context, key, value string) error {
	return b.client.Set(ctx, key, value, 0).Err()
}

func (b *redisBackend) Del(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

func (b *redisBackend) Clear(ctx context.Context) error {
	return b.client.FlushDB(ctx).Err()
}
