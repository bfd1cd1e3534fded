package pos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/modules/audit"
	"github.com/georgemunganga/tillkeeper/internal/platform/database"
)

type postgresRepo struct{ db database.DBTX }

func NewPostgresRepository(db database.DBTX) Repository { return &postgresRepo{db: db} }

const txColumns = `id, store_id, shift_id, cashier_id, amount, currency, payment_method,
	reference, status, change_given, notes, refund_reason, transacted_at, created_at, updated_at`

// The share lock on the shift row conflicts with the FOR UPDATE taken by
// the closing path, so a sale either lands before expected cash is computed
// or sees the shift already out of OPEN/ACTIVE.
func (r *postgresRepo) Insert(ctx context.Context, t *Transaction) error {
	var reference sql.NullString
	if t.Reference != "" {
		reference = sql.NullString{String: t.Reference, Valid: true}
	}
	var cashierID uuid.NullUUID
	if t.CashierID != nil {
		cashierID = uuid.NullUUID{UUID: *t.CashierID, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO pos_transactions
		  (id, store_id, shift_id, cashier_id, amount, currency, payment_method,
		   reference, status, change_given, notes, transacted_at)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4::uuid, $5::numeric, $6::text, $7::text,
		       $8::text, $9::text, $10::numeric, $11::text, $12::timestamptz
		WHERE EXISTS (
			SELECT 1 FROM shifts WHERE id = $3::uuid AND status IN ('OPEN', 'ACTIVE') FOR SHARE
		)
		RETURNING created_at, updated_at`,
		t.ID, t.StoreID, t.ShiftID, cashierID, t.Amount, t.Currency, string(t.PaymentMethod),
		reference, string(t.Status), t.ChangeGiven, t.Notes, t.TransactedAt,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShiftNotWorking
	}
	if err != nil {
		return fmt.Errorf("insert pos transaction: %w", err)
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return scanTransaction(r.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM pos_transactions WHERE id = $1`, id))
}

func (r *postgresRepo) ListByShift(ctx context.Context, shiftID uuid.UUID, limit int) ([]*Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM pos_transactions
		WHERE shift_id = $1
		ORDER BY transacted_at DESC, id
		LIMIT $2`, shiftID, limit)
	if err != nil {
		return nil, fmt.Errorf("list pos transactions: %w", err)
	}
	defer rows.Close()

	txs := []*Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *postgresRepo) MarkRefunded(ctx context.Context, id uuid.UUID, reason string) (*Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, `
		UPDATE pos_transactions t
		SET status = 'REFUNDED', refund_reason = $2, updated_at = NOW()
		WHERE t.id = $1
		  AND t.status = 'COMPLETED'
		  AND EXISTS (
			SELECT 1 FROM shifts s WHERE s.id = t.shift_id AND s.status IN ('OPEN', 'ACTIVE') FOR SHARE
		  )
		RETURNING `+txColumns, id, reason))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotRefundable
	}
	return t, err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanTransaction(row rowScanner) (*Transaction, error) {
	t := &Transaction{}
	var cashierID uuid.NullUUID
	var reference, refundReason sql.NullString
	err := row.Scan(&t.ID, &t.StoreID, &t.ShiftID, &cashierID,
		&t.Amount, &t.Currency, &t.PaymentMethod, &reference,
		&t.Status, &t.ChangeGiven, &t.Notes, &refundReason,
		&t.TransactedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan pos transaction: %w", err)
	}
	if cashierID.Valid {
		t.CashierID = &cashierID.UUID
	}
	if reference.Valid {
		t.Reference = reference.String
	}
	if refundReason.Valid {
		t.RefundReason = &refundReason.String
	}
	return t, nil
}

// PostgresTransactor runs sales and refunds in a pool transaction bounded by
// the configured lock and statement timeouts.
type PostgresTransactor struct {
	db               *sql.DB
	lockTimeout      time.Duration
	statementTimeout time.Duration
	logger           *zap.Logger
}

func NewPostgresTransactor(db *sql.DB, lockTimeout, statementTimeout time.Duration, logger *zap.Logger) *PostgresTransactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresTransactor{db: db, lockTimeout: lockTimeout, statementTimeout: statementTimeout, logger: logger}
}

func (p *PostgresTransactor) Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Infrastructure("DB_UNAVAILABLE", err, "begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				p.logger.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = database.SetLocalTimeouts(ctx, sqlTx, p.lockTimeout, p.statementTimeout); err != nil {
		return apperr.Infrastructure("DB_UNAVAILABLE", err, "configure transaction")
	}
	if err = fn(ctx, &pgTx{tx: sqlTx}); err != nil {
		if apperr.KindOf(err) == apperr.KindInternal && database.IsLockTimeout(err) {
			err = apperr.Infrastructure("LOCK_TIMEOUT", err, "timed out waiting for the shift")
		}
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct{ tx *sql.Tx }

func (t *pgTx) Transactions() Repository { return NewPostgresRepository(t.tx) }

func (t *pgTx) Audit() audit.Recorder { return audit.NewPostgresRepository(t.tx) }

func (t *pgTx) Savepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return database.Savepoint(ctx, t.tx, name, fn)
}
