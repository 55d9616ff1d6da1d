package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"sdi-exam/roster/internal/bootstrap"
	"sdi-exam/roster/internal/config"
)

const redisProbeName = "redis"

// errCacheMiss marks a missing key inside the breaker so that a miss is not
// counted as a failure.
var errCacheMiss = errors.New("cache miss")

// redisBackend is the subset of Redis used by RedisClient. It is implemented
// by the real go-redis client and by test doubles.
type redisBackend interface {
	PingResult(ctx context.Context) (string, error)
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// realRedisBackend adapts a *redis.Client to redisBackend.
type realRedisBackend struct {
	client *redis.Client
}

func (r *realRedisBackend) PingResult(ctx context.Context) (string, error) {
	return r.client.Ping(ctx).Result()
}

func (r *realRedisBackend) GetBytes(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errCacheMiss
	}
	return val, err
}

func (r *realRedisBackend) SetBytes(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, val, ttl).Err()
}

func (r *realRedisBackend) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *realRedisBackend) Close() error {
	return r.client.Close()
}

// RedisClient caches the character list in Redis behind a circuit breaker and
// exposes a Probe method for the deep health check.
type RedisClient struct {
	cb      *gobreaker.CircuitBreaker
	backend redisBackend
}

// NewRedisClient creates a RedisClient. go-redis connects lazily, so no
// connection is opened at construction time.
func NewRedisClient(cfg config.CacheConfig, cb *gobreaker.CircuitBreaker) *RedisClient {
	return &RedisClient{
		cb: cb,
		backend: &realRedisBackend{
			client: redis.NewClient(&redis.Options{
				Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
				Password: cfg.Password,
				DB:       cfg.DB,
			}),
		},
	}
}

// Get returns the cached value for key. ok is false on a miss.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.cb.Execute(func() (any, error) {
		v, err := c.backend.GetBytes(ctx, key)
		if errors.Is(err, errCacheMiss) {
			return nil, nil
		}
		return v, err
	})
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	b, _ := val.([]byte)
	if b == nil {
		return nil, false, nil
	}
	return b, true, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.backend.SetBytes(ctx, key, val, ttl)
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.backend.Del(ctx, key)
	})
	if err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Probe sends a PING command to Redis and validates the PONG response.
func (c *RedisClient) Probe(ctx context.Context) bootstrap.ProbeResult {
	start := time.Now()

	_, err := c.cb.Execute(func() (any, error) {
		val, err := c.backend.PingResult(ctx)
		if err != nil {
			return nil, fmt.Errorf("ping: %w", err)
		}
		if val != "PONG" {
			return nil, fmt.Errorf("unexpected PING response: %q", val)
		}
		return nil, nil
	})

	return probeResult(redisProbeName, start, err)
}

func (c *RedisClient) Close() error {
	return c.backend.Close()
}
