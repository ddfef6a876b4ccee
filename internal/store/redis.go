package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"attendly/internal/metrics"
)

// Redis is the shared client behind the derivation cache and the change queue.
type Redis struct {
	Client *redis.Client
}

// OpenRedis builds a client from either a redis:// URL or a bare host:port.
// Socket timeouts are capped by the store timeout so cache and queue calls
// never outlast the repository calls they accompany.
func OpenRedis(addr string, timeout time.Duration) (*Redis, error) {
	opts, err := redisOptions(addr, timeout)
	if err != nil {
		return nil, err
	}
	return &Redis{Client: redis.NewClient(opts)}, nil
}

func redisOptions(addr string, timeout time.Duration) (*redis.Options, error) {
	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts.DialTimeout = min(2*time.Second, timeout)
	opts.ReadTimeout = min(time.Second, timeout)
	opts.WriteTimeout = opts.ReadTimeout
	opts.MaxRetries = 1
	return opts, nil
}

// Ping checks connectivity and records its latency.
func (r *Redis) Ping(ctx context.Context) error {
	t0 := time.Now()
	err := r.Client.Ping(ctx).Err()
	metrics.ObserveRedisPing(time.Since(t0))
	return errors.Wrap(err, "redis ping")
}

// Healthy is a health check over Ping.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Ping(ctx) == nil
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
