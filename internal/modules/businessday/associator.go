package businessday

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/platform/tz"
)

// Associator decides which business day a new shift belongs to.
type Associator struct {
	logger *zap.Logger
}

func NewAssociator(logger *zap.Logger) *Associator {
	return &Associator{logger: logger}
}

// Resolve returns the store's latest OPEN day. Without one it get-or-creates
// the day for the store-local date of now; when that day has already been
// closed the shift belongs to the following business date.
func (a *Associator) Resolve(ctx context.Context, repo Repository, storeID uuid.UUID, loc *time.Location, now time.Time) (*BusinessDay, error) {
	day, err := repo.FindLatestOpen(ctx, storeID)
	if err == nil {
		return day, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find open business day: %w", err)
	}

	date := tz.LocalDate(now, loc)
	day, err = repo.GetOrCreate(ctx, storeID, date)
	if err != nil {
		return nil, err
	}
	if day.Status == StatusOpen {
		return day, nil
	}

	next := date.AddDate(0, 0, 1)
	a.logger.Info("business day already closed, rolling forward",
		zap.String("store_id", storeID.String()),
		zap.String("closed_date", day.Date()),
		zap.String("business_date", next.Format(time.DateOnly)),
	)
	return repo.GetOrCreate(ctx, storeID, next)
}

// Associate resolves the day and makes sure its day summary exists. A
// summary failure is logged and does not fail the association.
func (a *Associator) Associate(ctx context.Context, repo Repository, storeID uuid.UUID, loc *time.Location, now time.Time) (*BusinessDay, error) {
	day, err := a.Resolve(ctx, repo, storeID, loc, now)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureDaySummary(ctx, day); err != nil {
		a.logger.Warn("failed to ensure day summary",
			zap.String("business_day_id", day.ID.String()),
			zap.Error(err),
		)
	}
	return day, nil
}

// ForDate returns the day a shift that ran on the local date belongs to,
// regardless of its status. An OPEN day that started on or before date wins,
// as it would have when the shift was opened. Backfill uses it to link
// historical shifts.
func (a *Associator) ForDate(ctx context.Context, repo Repository, storeID uuid.UUID, date time.Time) (*BusinessDay, error) {
	day, err := repo.FindLatestOpen(ctx, storeID)
	switch {
	case err == nil && !day.BusinessDate.After(date):
	case err == nil || errors.Is(err, ErrNotFound):
		day, err = repo.GetOrCreate(ctx, storeID, date)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find open business day: %w", err)
	}
	if err := repo.EnsureDaySummary(ctx, day); err != nil {
		a.logger.Warn("failed to ensure day summary",
			zap.String("business_day_id", day.ID.String()),
			zap.Error(err),
		)
	}
	return day, nil
}
