package businessday

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/platform/database"
)

type postgresRepo struct{ db database.DBTX }

// NewPostgresRepository binds the repository to db, which may be the pool
// or an open transaction.
func NewPostgresRepository(db database.DBTX) Repository { return &postgresRepo{db: db} }

const selectDay = `
	SELECT id, store_id, business_date, status, opened_at, closed_at
	FROM business_days`

func scanDay(row *sql.Row) (*BusinessDay, error) {
	d := &BusinessDay{}
	var closedAt sql.NullTime
	err := row.Scan(&d.ID, &d.StoreID, &d.BusinessDate, &d.Status, &d.OpenedAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan business day: %w", err)
	}
	if closedAt.Valid {
		d.ClosedAt = &closedAt.Time
	}
	return d, nil
}

func (r *postgresRepo) FindLatestOpen(ctx context.Context, storeID uuid.UUID) (*BusinessDay, error) {
	return scanDay(r.db.QueryRowContext(ctx, selectDay+`
		WHERE store_id = $1 AND status = 'OPEN'
		ORDER BY business_date DESC
		LIMIT 1`, storeID))
}

func (r *postgresRepo) GetOrCreate(ctx context.Context, storeID uuid.UUID, date time.Time) (*BusinessDay, error) {
	day := date.Format(time.DateOnly)
	// A date created while another day is still OPEN is historical and
	// starts CLOSED, keeping at most one OPEN day per store.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO business_days (id, store_id, business_date, status, closed_at)
		SELECT $1::uuid, $2::uuid, $3::date, s.status, CASE WHEN s.status = 'CLOSED' THEN NOW() END
		FROM (
			SELECT CASE WHEN EXISTS (
				SELECT 1 FROM business_days WHERE store_id = $2::uuid AND status = 'OPEN'
			) THEN 'CLOSED' ELSE 'OPEN' END AS status
		) s
		ON CONFLICT (store_id, business_date) DO NOTHING`,
		uuid.New(), storeID, day)
	if err != nil {
		return nil, fmt.Errorf("create business day %s: %w", day, err)
	}
	return scanDay(r.db.QueryRowContext(ctx, selectDay+`
		WHERE store_id = $1 AND business_date = $2`, storeID, day))
}

func (r *postgresRepo) EnsureDaySummary(ctx context.Context, day *BusinessDay) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO day_summaries (id, business_day_id, store_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (business_day_id) DO NOTHING`,
		uuid.New(), day.ID, day.StoreID)
	if err != nil {
		return fmt.Errorf("ensure day summary for %s: %w", day.ID, err)
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id uuid.UUID) (*BusinessDay, error) {
	return scanDay(r.db.QueryRowContext(ctx, selectDay+` WHERE id = $1`, id))
}
