package shift

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/tillkeeper/internal/platform/database"
)

type postgresRepo struct{ db database.DBTX }

// NewPostgresRepository binds the repository to db, which may be the pool
// or an open transaction.
func NewPostgresRepository(db database.DBTX) Repository { return &postgresRepo{db: db} }

const selectShift = `
	SELECT id, store_id, terminal_id, cashier_id, opened_by, status, shift_number, local_date,
	       opening_cash, closing_cash, expected_cash, variance_amount, variance_reason,
	       approved_by, approved_at, business_day_id, opened_at, closed_at, created_at, updated_at
	FROM shifts`

type scanner interface {
	Scan(dest ...any) error
}

func scanShift(row scanner) (*Shift, error) {
	s := &Shift{}
	var (
		reason     sql.NullString
		approvedBy uuid.NullUUID
		approvedAt sql.NullTime
		dayID      uuid.NullUUID
		closedAt   sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.StoreID, &s.TerminalID, &s.CashierID, &s.OpenedBy, &s.Status, &s.ShiftNumber, &s.LocalDate,
		&s.OpeningCash, &s.ClosingCash, &s.ExpectedCash, &s.VarianceAmount, &reason,
		&approvedBy, &approvedAt, &dayID, &s.OpenedAt, &closedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan shift: %w", err)
	}
	if reason.Valid {
		s.VarianceReason = &reason.String
	}
	if approvedBy.Valid {
		s.ApprovedBy = &approvedBy.UUID
	}
	if approvedAt.Valid {
		s.ApprovedAt = &approvedAt.Time
	}
	if dayID.Valid {
		s.BusinessDayID = &dayID.UUID
	}
	if closedAt.Valid {
		s.ClosedAt = &closedAt.Time
	}
	return s, nil
}

func (r *postgresRepo) list(ctx context.Context, query string, args ...any) ([]*Shift, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query shifts: %w", err)
	}
	defer rows.Close()

	shifts := []*Shift{}
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

func (r *postgresRepo) Insert(ctx context.Context, s *Shift) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO shifts (id, store_id, terminal_id, cashier_id, opened_by, status, shift_number,
		                    local_date, opening_cash, business_day_id, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		s.ID, s.StoreID, s.TerminalID, s.CashierID, s.OpenedBy, s.Status, s.ShiftNumber,
		s.LocalDate.Format(time.DateOnly), s.OpeningCash, s.BusinessDayID, s.OpenedAt,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err) {
		switch database.ConstraintName(err) {
		case "shifts_one_unclosed_per_terminal":
			return ErrUnclosedShiftExists
		case "shifts_terminal_day_number_key":
			return ErrShiftNumberTaken
		}
	}
	return fmt.Errorf("insert shift: %w", err)
}

func (r *postgresRepo) Get(ctx context.Context, id uuid.UUID) (*Shift, error) {
	return scanShift(r.db.QueryRowContext(ctx, selectShift+` WHERE id = $1`, id))
}

func (r *postgresRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Shift, error) {
	return scanShift(r.db.QueryRowContext(ctx, selectShift+` WHERE id = $1 FOR UPDATE`, id))
}

func (r *postgresRepo) Update(ctx context.Context, s *Shift) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = $2, closing_cash = $3, expected_cash = $4, variance_amount = $5,
		    variance_reason = $6, approved_by = $7, approved_at = $8, closed_at = $9,
		    updated_at = NOW()
		WHERE id = $1 AND status <> 'CLOSED'
		RETURNING updated_at`,
		s.ID, s.Status, s.ClosingCash, s.ExpectedCash, s.VarianceAmount,
		s.VarianceReason, s.ApprovedBy, s.ApprovedAt, s.ClosedAt,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrShiftLocked
	}
	if err != nil {
		return fmt.Errorf("update shift %s: %w", s.ID, err)
	}
	return nil
}

func (r *postgresRepo) FindUnclosedByTerminal(ctx context.Context, terminalID uuid.UUID) (*Shift, error) {
	return scanShift(r.db.QueryRowContext(ctx, selectShift+`
		WHERE terminal_id = $1 AND status <> 'CLOSED'
		ORDER BY opened_at DESC
		LIMIT 1`, terminalID))
}

func (r *postgresRepo) CountOpenedBetween(ctx context.Context, terminalID uuid.UUID, start, end time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM shifts
		WHERE terminal_id = $1 AND opened_at >= $2 AND opened_at < $3`,
		terminalID, start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count shifts: %w", err)
	}
	return n, nil
}

func (r *postgresRepo) ListByStore(ctx context.Context, storeID uuid.UUID, status Status, limit int) ([]*Shift, error) {
	return r.list(ctx, selectShift+`
		WHERE store_id = $1 AND ($2::text = '' OR status = $2::text)
		ORDER BY opened_at DESC
		LIMIT $3`, storeID, string(status), limit)
}

func (r *postgresRepo) ListMissingBusinessDay(ctx context.Context, storeID uuid.UUID) ([]*Shift, error) {
	return r.list(ctx, selectShift+`
		WHERE store_id = $1 AND business_day_id IS NULL
		ORDER BY opened_at`, storeID)
}

func (r *postgresRepo) SetBusinessDay(ctx context.Context, shiftID, dayID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE shifts SET business_day_id = $2, updated_at = NOW()
		WHERE id = $1 AND business_day_id IS NULL`, shiftID, dayID)
	if err != nil {
		return fmt.Errorf("link shift %s to business day: %w", shiftID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SumCompletedCash(ctx context.Context, shiftID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM pos_transactions
		WHERE shift_id = $1 AND payment_method = 'CASH' AND status = 'COMPLETED'`,
		shiftID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum cash transactions: %w", err)
	}
	return total, nil
}

func (r *postgresRepo) TenderTotals(ctx context.Context, shiftID uuid.UUID) ([]TenderTotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(amount), 0)
		FROM pos_transactions
		WHERE shift_id = $1 AND status = 'COMPLETED'
		GROUP BY payment_method
		ORDER BY payment_method`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("query tender totals: %w", err)
	}
	defer rows.Close()

	totals := []TenderTotal{}
	for rows.Next() {
		var t TenderTotal
		if err := rows.Scan(&t.Method, &t.Count, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan tender total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (r *postgresRepo) SaveSummary(ctx context.Context, sum *Summary) error {
	raw, err := json.Marshal(sum.TenderTotals)
	if err != nil {
		return fmt.Errorf("encode tender totals: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO shift_summaries (shift_id, transaction_count, tender_totals, closing_cash, taken_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (shift_id) DO UPDATE
		SET transaction_count = EXCLUDED.transaction_count,
		    tender_totals = EXCLUDED.tender_totals,
		    closing_cash = EXCLUDED.closing_cash,
		    taken_at = EXCLUDED.taken_at`,
		sum.ShiftID, sum.TransactionCount, raw, sum.ClosingCash, sum.TakenAt)
	if err != nil {
		return fmt.Errorf("save shift summary: %w", err)
	}
	return nil
}

func (r *postgresRepo) GetSummary(ctx context.Context, shiftID uuid.UUID) (*Summary, error) {
	sum := &Summary{ShiftID: shiftID, Snapshot: true}
	var raw []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT transaction_count, tender_totals, closing_cash, taken_at
		FROM shift_summaries WHERE shift_id = $1`, shiftID,
	).Scan(&sum.TransactionCount, &raw, &sum.ClosingCash, &sum.TakenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shift summary: %w", err)
	}
	if err := json.Unmarshal(raw, &sum.TenderTotals); err != nil {
		return nil, fmt.Errorf("decode tender totals: %w", err)
	}
	return sum, nil
}
