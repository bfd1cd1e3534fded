// Package database owns the Postgres connection pool, the embedded schema
// migrations and small helpers shared by the module repositories.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repositories can run
// against the pool or inside a unit of work.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to Postgres through lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// SetLocalTimeouts bounds lock waits and statement duration for the rest of
// the surrounding transaction. Zero durations leave the server default.
func SetLocalTimeouts(ctx context.Context, tx DBTX, lockTimeout, statementTimeout time.Duration) error {
	if lockTimeout > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}
	if statementTimeout > 0 {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", statementTimeout.Milliseconds())); err != nil {
			return fmt.Errorf("set statement_timeout: %w", err)
		}
	}
	return nil
}

// Savepoint runs fn inside a named savepoint. If fn fails the savepoint is
// rolled back so the enclosing transaction stays usable; fn's error is
// returned either way.
func Savepoint(ctx context.Context, tx DBTX, name string, fn func(ctx context.Context) error) error {
	ident := pq.QuoteIdentifier(name)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+ident); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+ident); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint %s: %w", name, rbErr))
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+ident); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}

const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03"
	codeQueryCanceled    = "57014"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// IsUniqueViolation reports a unique constraint violation (23505).
func IsUniqueViolation(err error) bool {
	return pqCode(err) == codeUniqueViolation
}

// ConstraintName returns the violated constraint, when the driver reports one.
func ConstraintName(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}

// IsLockTimeout reports lock_timeout expiry (55P03) or a statement_timeout
// cancellation (57014).
func IsLockTimeout(err error) bool {
	code := pqCode(err)
	return code == codeLockNotAvailable || code == codeQueryCanceled
}
