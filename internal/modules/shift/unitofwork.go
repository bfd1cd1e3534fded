package shift

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/modules/audit"
	"github.com/georgemunganga/tillkeeper/internal/modules/businessday"
	"github.com/georgemunganga/tillkeeper/internal/platform/database"
	"github.com/georgemunganga/tillkeeper/internal/platform/lock"
)

// Timeouts bound one unit of work.
type Timeouts struct {
	Tx        time.Duration
	Lock      time.Duration
	Statement time.Duration
}

// PostgresUnitOfWork runs each unit of work in one Postgres transaction.
// Terminal locks are advisory transaction locks unless an external Locker is
// configured, in which case they are released after commit or rollback.
type PostgresUnitOfWork struct {
	db       *sql.DB
	locker   lock.Locker
	timeouts Timeouts
	logger   *zap.Logger
}

var _ UnitOfWork = (*PostgresUnitOfWork)(nil)

// NewPostgresUnitOfWork creates a unit of work over db. locker may be nil.
func NewPostgresUnitOfWork(db *sql.DB, locker lock.Locker, timeouts Timeouts, logger *zap.Logger) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{db: db, locker: locker, timeouts: timeouts, logger: logger}
}

func (u *PostgresUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if u.timeouts.Tx > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeouts.Tx)
		defer cancel()
	}

	sqlTx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyLockErr(ctx, fmt.Errorf("begin transaction: %w", err))
	}
	t := &pgTx{tx: sqlTx, locker: u.locker}
	defer t.release(ctx, u.logger)
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := database.SetLocalTimeouts(ctx, sqlTx, u.timeouts.Lock, u.timeouts.Statement); err != nil {
		_ = sqlTx.Rollback()
		return apperr.Infrastructure("DB_UNAVAILABLE", err, "could not configure transaction")
	}
	if err := fn(ctx, t); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			u.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		return classifyLockErr(ctx, err)
	}
	if err := sqlTx.Commit(); err != nil {
		return classifyLockErr(ctx, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// classifyLockErr turns lock waits that ran out of time, and lock provider
// failures, into infrastructure errors. Classified errors pass through.
func classifyLockErr(ctx context.Context, err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	switch {
	case database.IsLockTimeout(err), errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperr.Infrastructure(CodeLockTimeout, err, "timed out waiting for a lock")
	case errors.Is(err, lock.ErrUnavailable):
		return apperr.Infrastructure(CodeLockUnavailable, err, "lock provider unavailable")
	}
	return err
}

type pgTx struct {
	tx       *sql.Tx
	locker   lock.Locker
	releases []lock.Release
}

func (t *pgTx) Shifts() Repository { return NewPostgresRepository(t.tx) }

func (t *pgTx) BusinessDays() businessday.Repository {
	return businessday.NewPostgresRepository(t.tx)
}

func (t *pgTx) Audit() audit.Recorder { return audit.NewPostgresRepository(t.tx) }

func (t *pgTx) LockTerminal(ctx context.Context, key int64) error {
	if t.locker == nil {
		return lock.AcquireXact(ctx, t.tx, key)
	}
	release, err := t.locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	t.releases = append(t.releases, release)
	return nil
}

func (t *pgTx) Savepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return database.Savepoint(ctx, t.tx, name, fn)
}

// release frees external locks in reverse order. It runs after the
// transaction has ended, even when ctx is already done.
func (t *pgTx) release(ctx context.Context, logger *zap.Logger) {
	if len(t.releases) == 0 {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	for i := len(t.releases) - 1; i >= 0; i-- {
		if err := t.releases[i](rctx); err != nil {
			logger.Warn("failed to release terminal lock", zap.Error(err))
		}
	}
}
