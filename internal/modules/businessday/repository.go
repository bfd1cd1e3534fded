package businessday

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines business day storage. Implementations may be bound to
// a transaction.
type Repository interface {
	// FindLatestOpen returns the most recent OPEN day of the store, or
	// ErrNotFound.
	FindLatestOpen(ctx context.Context, storeID uuid.UUID) (*BusinessDay, error)
	// GetOrCreate returns the day for (storeID, date), creating it OPEN if it
	// does not exist. Concurrent calls converge on one row.
	GetOrCreate(ctx context.Context, storeID uuid.UUID, date time.Time) (*BusinessDay, error)
	EnsureDaySummary(ctx context.Context, day *BusinessDay) error
	Get(ctx context.Context, id uuid.UUID) (*BusinessDay, error)
}
