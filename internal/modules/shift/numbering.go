package shift

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/platform/lock"
	"github.com/georgemunganga/tillkeeper/internal/platform/tz"
)

// LockNamespace prefixes the per-terminal lock name.
const LockNamespace = "terminal-shift"

// TerminalLockKey is the lock key guarding shift creation on a terminal.
func TerminalLockKey(terminalID uuid.UUID) int64 {
	return lock.Key(LockNamespace, terminalID.String())
}

// Allocation is a shift number and the local date it is scoped to.
type Allocation struct {
	Number    int
	LocalDate time.Time
}

// NumberAllocator hands out gap-free shift numbers per terminal and local
// day. The terminal lock taken by Next is held until tx ends, so the count
// and the insert that follows it cannot interleave with another opener.
type NumberAllocator struct{}

func (NumberAllocator) Next(ctx context.Context, tx Tx, terminalID uuid.UUID, loc *time.Location, now time.Time) (Allocation, error) {
	if err := tx.LockTerminal(ctx, TerminalLockKey(terminalID)); err != nil {
		return Allocation{}, err
	}
	start, end := tz.DayBounds(now, loc)
	count, err := tx.Shifts().CountOpenedBetween(ctx, terminalID, start, end)
	if err != nil {
		return Allocation{}, fmt.Errorf("count shifts for terminal %s: %w", terminalID, err)
	}
	return Allocation{Number: count + 1, LocalDate: tz.LocalDate(now, loc)}, nil
}
