// Package lock provides the named mutual-exclusion locks used to serialize
// critical sections across service instances. A lock is identified by a
// stable int64 key derived from a namespace and a resource id.
package lock

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/georgemunganga/tillkeeper/internal/platform/database"
)

// ErrUnavailable wraps any failure to obtain a lock for reasons other than
// the caller's own context.
var ErrUnavailable = errors.New("lock unavailable")

// Release frees a held lock.
type Release func(ctx context.Context) error

// Locker acquires locks that live outside a database transaction. Callers
// must invoke the returned Release exactly once, in a deferred cleanup.
type Locker interface {
	Acquire(ctx context.Context, key int64) (Release, error)
}

// Key derives the lock key for id within namespace using FNV-1a. The same
// input always yields the same key on every instance.
func Key(namespace, id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(namespace))
	h.Write([]byte{':'})
	h.Write([]byte(id))
	return int64(h.Sum64())
}

// AcquireXact takes a Postgres advisory lock scoped to the transaction tx.
// It blocks until the lock is free (bounded by lock_timeout) and is released
// by the server on commit or rollback.
func AcquireXact(ctx context.Context, tx database.DBTX, key int64) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
		return fmt.Errorf("%w: pg_advisory_xact_lock(%d): %w", ErrUnavailable, key, err)
	}
	return nil
}
