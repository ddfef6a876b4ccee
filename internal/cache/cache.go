// Package cache stores derived attendance figures in Redis as JSON.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Redis is a JSON cache over a Redis client with a fixed TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a cache; keys are namespaced under prefix.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "attendly:"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Get decodes the cached value into dst and reports whether it was present.
func (r *Redis) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "cache get %s", key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, errors.Wrapf(err, "cache decode %s", key)
	}
	return true, nil
}

// Set stores v under key for the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "cache encode %s", key)
	}
	return errors.Wrapf(r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(), "cache set %s", key)
}

// Delete drops the given keys.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	return errors.Wrap(r.client.Del(ctx, full...).Err(), "cache delete")
}

// Generation reads the course's generation counter; a missing counter is zero.
func (r *Redis) Generation(ctx context.Context, code string) (int64, error) {
	gen, err := r.client.Get(ctx, r.generationKey(code)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, errors.Wrapf(err, "cache generation %s", code)
}

// Bump increments the course's generation counter with INCR.
func (r *Redis) Bump(ctx context.Context, code string) (int64, error) {
	gen, err := r.client.Incr(ctx, r.generationKey(code)).Result()
	return gen, errors.Wrapf(err, "cache bump %s", code)
}

func (r *Redis) generationKey(code string) string { return r.prefix + "gen:" + code }

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, interface{}) error         { return nil }
func (Nop) Delete(context.Context, ...string) error                { return nil }
func (Nop) Generation(context.Context, string) (int64, error)      { return 0, nil }
func (Nop) Bump(context.Context, string) (int64, error)            { return 0, nil }
