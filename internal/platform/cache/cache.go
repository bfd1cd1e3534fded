// Package cache stores derived read models (shift summaries, reports) in
// Redis. The cache is never authoritative: every failure degrades to a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Cache is the read-model cache used by the services.
type Cache interface {
	Load(ctx context.Context, key string, dest any) (bool, error)
	Store(ctx context.Context, key string, value any) error
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// ShiftKey is the cache key prefix for everything derived from one shift.
func ShiftKey(shiftID string, parts ...string) string {
	key := "report:shift:" + shiftID
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// Redis implements Cache over go-redis with a circuit breaker so a flapping
// Redis does not add latency to every request.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var _ Cache = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Redis {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "report-cache",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return &Redis{client: client, ttl: ttl, cb: cb, logger: logger}
}

// Load decodes the cached value for key into dest. A miss, an open breaker
// or a corrupt entry all report false.
func (c *Redis) Load(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.cb.Execute(func() (interface{}, error) {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		c.logger.Debug("cache load failed", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	b, _ := raw.([]byte)
	if b == nil {
		return false, nil
	}
	if err := json.Unmarshal(b, dest); err != nil {
		c.logger.Warn("dropping corrupt cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func (c *Redis) Store(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	_, err = c.cb.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, b, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("store cache entry %s: %w", key, err)
	}
	return nil
}

// InvalidatePrefix removes every key starting with prefix.
func (c *Redis) InvalidatePrefix(ctx context.Context, prefix string) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		return nil, c.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("invalidate %s*: %w", prefix, err)
	}
	return nil
}

// Noop is used when no Redis is configured.
type Noop struct{}

var _ Cache = Noop{}

func (Noop) Load(context.Context, string, any) (bool, error) { return false, nil }

func (Noop) Store(context.Context, string, any) error { return nil }

func (Noop) InvalidatePrefix(context.Context, string) error { return nil }
