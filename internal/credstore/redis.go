package credstore

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps values in Redis under a key prefix.
type RedisBackend struct {
	rdb       redis.UniversalClient
	keyPrefix string
}

// NewRedisBackend creates a backend on an existing client. An empty prefix defaults to "easygit".
func NewRedisBackend(rdb redis.UniversalClient, keyPrefix string) *RedisBackend {
	if keyPrefix == "" {
		keyPrefix = "easygit"
	}
	return &RedisBackend{rdb: rdb, keyPrefix: keyPrefix}
}

func (b *RedisBackend) key(parts ...string) string {
	return b.keyPrefix + ":" + strings.Join(parts, ":")
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	v, err := b.rdb.Get(ctx, b.key("cred", key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string) error {
	return b.rdb.Set(ctx, b.key("cred", key), value, 0).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, b.key("cred", key)).Err()
}
