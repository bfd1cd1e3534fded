package shift

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/georgemunganga/tillkeeper/internal/modules/audit"
	"github.com/georgemunganga/tillkeeper/internal/modules/businessday"
	"github.com/georgemunganga/tillkeeper/internal/modules/store"
)

// Repository defines shift data storage. Implementations bound to a
// transaction see that transaction's writes.
type Repository interface {
	Insert(ctx context.Context, s *Shift) error
	Get(ctx context.Context, id uuid.UUID) (*Shift, error)
	// GetForUpdate reads the shift and holds its row lock until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Shift, error)
	// Update persists status and financial fields. It fails with
	// ErrShiftLocked when the stored row is already CLOSED.
	Update(ctx context.Context, s *Shift) error
	FindUnclosedByTerminal(ctx context.Context, terminalID uuid.UUID) (*Shift, error)
	CountOpenedBetween(ctx context.Context, terminalID uuid.UUID, start, end time.Time) (int, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, status Status, limit int) ([]*Shift, error)
	ListMissingBusinessDay(ctx context.Context, storeID uuid.UUID) ([]*Shift, error)
	SetBusinessDay(ctx context.Context, shiftID, dayID uuid.UUID) error

	CashTotals
	TenderTotals(ctx context.Context, shiftID uuid.UUID) ([]TenderTotal, error)
	SaveSummary(ctx context.Context, sum *Summary) error
	GetSummary(ctx context.Context, shiftID uuid.UUID) (*Summary, error)
}

// CashTotals is the read used to compute expected drawer cash.
type CashTotals interface {
	// SumCompletedCash totals COMPLETED CASH transactions of the shift.
	SumCompletedCash(ctx context.Context, shiftID uuid.UUID) (decimal.Decimal, error)
}

// Tx is one unit of work. Everything done through it commits or rolls back
// together.
type Tx interface {
	Shifts() Repository
	BusinessDays() businessday.Repository
	Audit() audit.Recorder
	// LockTerminal takes the named lock for key and holds it until the
	// unit of work ends.
	LockTerminal(ctx context.Context, key int64) error
	// Savepoint runs fn so that its failure does not abort the unit of work.
	Savepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error
}

// UnitOfWork runs fn in a transaction, committing when fn returns nil.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Directory validates the actors and equipment named by an operation.
type Directory interface {
	ValidateStore(ctx context.Context, storeID uuid.UUID) (*store.Store, error)
	ValidateTerminal(ctx context.Context, storeID, terminalID uuid.UUID) (*store.Terminal, error)
	ValidateCashier(ctx context.Context, storeID, cashierID uuid.UUID) (*store.Cashier, error)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
