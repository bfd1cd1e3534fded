package pos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/modules/audit"
)

var (
	ErrNotFound = errors.New("pos transaction not found")
	// ErrShiftNotWorking is returned by guarded writes when the shift left
	// OPEN/ACTIVE before the write could take its share lock.
	ErrShiftNotWorking = errors.New("shift is not accepting sales")
	ErrNotRefundable   = errors.New("pos transaction is not refundable")
)

// Repository defines data access for POS transactions.
type Repository interface {
	// Insert stores t only while its shift is OPEN or ACTIVE.
	Insert(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListByShift(ctx context.Context, shiftID uuid.UUID, limit int) ([]*Transaction, error)
	// MarkRefunded flips a COMPLETED transaction of a working shift to
	// REFUNDED.
	MarkRefunded(ctx context.Context, id uuid.UUID, reason string) (*Transaction, error)
}

// Tx is the view a sale or refund gets of its database transaction.
type Tx interface {
	Transactions() Repository
	Audit() audit.Recorder
	Savepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// Transactor runs fn in one database transaction.
type Transactor interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
