package lock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions tunes the redsync mutex.
type RedisOptions struct {
	// Expiry bounds how long a crashed holder can keep the lock. It must
	// outlast the longest transaction that holds the lock.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
	Prefix     string
}

// DefaultRedisOptions suits locks held for the length of one short
// database transaction.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:     15 * time.Second,
		Tries:      32,
		RetryDelay: 150 * time.Millisecond,
		Prefix:     "tillkeeper:lock:",
	}
}

// RedisLocker implements Locker with the RedLock algorithm over one Redis
// deployment. Use it where Postgres advisory locks are not available.
type RedisLocker struct {
	rs     *redsync.Redsync
	opts   RedisOptions
	logger *zap.Logger
}

var _ Locker = (*RedisLocker)(nil)

// NewRedisLocker wraps client in a redsync pool.
func NewRedisLocker(client redis.UniversalClient, opts RedisOptions, logger *zap.Logger) *RedisLocker {
	if opts.Tries < 1 {
		opts.Tries = 1
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}
}

// Acquire blocks (within Tries*RetryDelay) until the lock for key is held.
func (l *RedisLocker) Acquire(ctx context.Context, key int64) (Release, error) {
	name := l.opts.Prefix + strconv.FormatInt(key, 10)
	mutex := l.rs.NewMutex(name,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
	}
	l.logger.Debug("lock acquired", zap.String("lock", name))

	return func(ctx context.Context) error {
		ok, err := mutex.UnlockContext(ctx)
		if err != nil {
			l.logger.Error("failed to release lock", zap.String("lock", name), zap.Error(err))
			return fmt.Errorf("release %s: %w", name, err)
		}
		if !ok {
			l.logger.Warn("lock expired before release", zap.String("lock", name))
			return errors.New("lock was not held or already expired")
		}
		l.logger.Debug("lock released", zap.String("lock", name))
		return nil
	}, nil
}
