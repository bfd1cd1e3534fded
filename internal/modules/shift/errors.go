package shift

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
)

// Repository sentinels, translated to apperr kinds by the service.
var (
	ErrNotFound            = errors.New("shift not found")
	ErrUnclosedShiftExists = errors.New("terminal already has an unclosed shift")
	ErrShiftNumberTaken    = errors.New("shift number already allocated")
	ErrShiftLocked         = errors.New("shift is closed")
)

// Stable error codes.
const (
	CodeShiftNotFound          = "SHIFT_NOT_FOUND"
	CodeTerminalHasOpenShift   = "TERMINAL_HAS_OPEN_SHIFT"
	CodeShiftAlreadyClosing    = "SHIFT_ALREADY_CLOSING"
	CodeShiftAlreadyClosed     = "SHIFT_ALREADY_CLOSED"
	CodeShiftNumberTaken       = "SHIFT_NUMBER_TAKEN"
	CodeInvalidShiftStatus     = "INVALID_SHIFT_STATUS"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeShiftLocked            = "SHIFT_LOCKED"
	CodeShiftNotWorking        = "SHIFT_NOT_WORKING"
	CodeNoActiveShift          = "NO_ACTIVE_SHIFT"
	CodeInvalidCashAmount      = "INVALID_CASH_AMOUNT"
	CodeVarianceReasonRequired = "VARIANCE_REASON_REQUIRED"
	CodeVarianceReasonTooLong  = "VARIANCE_REASON_TOO_LONG"
	CodeLockUnavailable        = "LOCK_UNAVAILABLE"
	CodeLockTimeout            = "LOCK_TIMEOUT"
)

// InvalidTransitionError reports a move the state machine does not allow.
type InvalidTransitionError struct {
	Current Status
	Target  Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid shift transition %s -> %s", e.Current, e.Target)
}

func (e *InvalidTransitionError) ErrorKind() apperr.Kind { return apperr.KindInvalidState }

func (e *InvalidTransitionError) ErrorCode() string { return CodeInvalidTransition }

func (e *InvalidTransitionError) ErrorDetails() map[string]any {
	return map[string]any{"current": e.Current, "target": e.Target}
}

func errShiftNotFound(id uuid.UUID) error {
	return apperr.NotFound(CodeShiftNotFound, "shift %s not found", id)
}

func errInvalidStatus(op string, current Status, allowed ...Status) error {
	return apperr.InvalidState(CodeInvalidShiftStatus, "cannot %s a shift in status %s", op, current).
		With("current", current).
		With("allowed", allowed)
}

func errTerminalHasOpenShift(existing *Shift) error {
	e := apperr.Conflict(CodeTerminalHasOpenShift, "terminal %s already has an unclosed shift", existing.TerminalID)
	if existing.ID != uuid.Nil {
		e = e.With("shift_id", existing.ID).With("status", existing.Status)
	}
	return e
}

func errAlreadyClosed(id uuid.UUID) error {
	return apperr.Conflict(CodeShiftAlreadyClosed, "shift %s is already closed", id)
}
