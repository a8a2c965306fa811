package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RPUSH y EXPIRE en un solo script para que el append y la renovacion del TTL sean atomicos.
const redisAppendScript = `
redis.call("RPUSH", KEYS[1], ARGV[1])
redis.call("EXPIRE", KEYS[1], ARGV[2])
return 1
`

type redisCommander interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisBackend guarda un log por sesion como lista de redis con expiracion del lado del servidor.
type RedisBackend struct {
	client redisCommander
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Push(ctx context.Context, key, payload string, ttl time.Duration) error {
	seconds := int(ttl.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return b.client.Eval(ctx, redisAppendScript, []string{key}, payload, seconds).Err()
}

func (b *RedisBackend) Range(ctx context.Context, key string) ([]string, error) {
	items, err := b.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
