package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend shares sessions across console replicas. Both keys are written
// in one MULTI/EXEC and every read or write refreshes the TTL, so only an idle
// browser session expires, and it expires as a unit.
type RedisBackend struct {
	client redisClient
	ttl    time.Duration
}

// redisClient is satisfied by *redis.Client.
type redisClient interface {
	redis.Cmdable
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

func NewRedisBackend(client redisClient, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

// Load reads the keys and, when any was found, pushes their expiry out by the
// TTL in the same MULTI/EXEC.
func (b *RedisBackend) Load(ctx context.Context, keys ...string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	var mget *redis.SliceCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		mget = pipe.MGet(ctx, keys...)
		if b.ttl > 0 {
			for _, k := range keys {
				pipe.Expire(ctx, k, b.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis load: %w", err)
	}
	out := make(map[string]string, len(keys))
	for i, v := range mget.Val() {
		if s, ok := v.(string); ok {
			out[keys[i]] = s
		}
	}
	return out, nil
}

func (b *RedisBackend) Save(ctx context.Context, values map[string]string) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, k, v, b.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save: %w", err)
	}
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// CompareAndSave uses WATCH on key; a concurrent write to key aborts the
// transaction and is reported as not swapped.
func (b *RedisBackend) CompareAndSave(ctx context.Context, key, expected string, values map[string]string) (bool, error) {
	swapped := false
	err := b.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if current != expected {
			return nil
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for k, v := range values {
				pipe.Set(ctx, k, v, b.ttl)
			}
			return nil
		}); err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis compare-and-save: %w", err)
	}
	return swapped, nil
}
