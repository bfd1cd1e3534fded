package shift

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a register shift.
type Status string

const (
	StatusOpen           Status = "OPEN"
	StatusActive         Status = "ACTIVE"
	StatusClosing        Status = "CLOSING"
	StatusReconciling    Status = "RECONCILING"
	StatusVarianceReview Status = "VARIANCE_REVIEW"
	StatusClosed         Status = "CLOSED"
)

// ActivationTrigger names the first activity that moved a shift to ACTIVE.
type ActivationTrigger string

const (
	TriggerFirstSale            ActivationTrigger = "FIRST_SALE"
	TriggerFirstInventoryAction ActivationTrigger = "FIRST_INVENTORY_ACTION"
	TriggerManual               ActivationTrigger = "MANUAL"
)

func (t ActivationTrigger) Valid() bool {
	switch t {
	case TriggerFirstSale, TriggerFirstInventoryAction, TriggerManual:
		return true
	}
	return false
}

// Shift is one register session on a terminal. Financial fields are frozen
// once the shift is CLOSED.
type Shift struct {
	ID             uuid.UUID           `json:"id"`
	StoreID        uuid.UUID           `json:"store_id"`
	TerminalID     uuid.UUID           `json:"terminal_id"`
	CashierID      uuid.UUID           `json:"cashier_id"`
	OpenedBy       uuid.UUID           `json:"opened_by"`
	Status         Status              `json:"status"`
	ShiftNumber    int                 `json:"shift_number"`
	LocalDate      time.Time           `json:"local_date"`
	OpeningCash    decimal.Decimal     `json:"opening_cash"`
	ClosingCash    decimal.NullDecimal `json:"closing_cash"`
	ExpectedCash   decimal.NullDecimal `json:"expected_cash"`
	VarianceAmount decimal.NullDecimal `json:"variance_amount"`
	VarianceReason *string             `json:"variance_reason,omitempty"`
	ApprovedBy     *uuid.UUID          `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time          `json:"approved_at,omitempty"`
	BusinessDayID  *uuid.UUID          `json:"business_day_id,omitempty"`
	OpenedAt       time.Time           `json:"opened_at"`
	ClosedAt       *time.Time          `json:"closed_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TenderTotal aggregates the completed transactions of one payment method.
type TenderTotal struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is the tender breakdown of a shift. Direct closes persist one as
// a snapshot; open shifts have it computed live.
type Summary struct {
	ShiftID          uuid.UUID           `json:"shift_id"`
	TransactionCount int                 `json:"transaction_count"`
	TenderTotals     []TenderTotal       `json:"tender_totals"`
	ClosingCash      decimal.NullDecimal `json:"closing_cash"`
	TakenAt          time.Time           `json:"taken_at"`
	Snapshot         bool                `json:"snapshot"`
}

// OpenShiftRequest is the payload for opening a shift.
type OpenShiftRequest struct {
	StoreID     string          `json:"store_id" validate:"required,uuid"`
	TerminalID  string          `json:"terminal_id" validate:"required,uuid"`
	CashierID   string          `json:"cashier_id" validate:"required,uuid"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
}

// ActivateRequest is the payload for an explicit activation.
type ActivateRequest struct {
	Trigger ActivationTrigger `json:"trigger" validate:"omitempty,oneof=FIRST_SALE FIRST_INVENTORY_ACTION MANUAL"`
}

// ReconcileRequest carries the counted drawer cash.
type ReconcileRequest struct {
	ActualCash     decimal.Decimal `json:"actual_cash"`
	VarianceReason *string         `json:"variance_reason,omitempty"`
}

// ApproveVarianceRequest is a manager's sign-off on a flagged variance.
type ApproveVarianceRequest struct {
	Reason string `json:"reason"`
}

// CloseShiftRequest carries the counted drawer cash for a direct close.
type CloseShiftRequest struct {
	ActualCash decimal.Decimal `json:"actual_cash"`
}

// BackfillResult reports how many shifts were linked to a business day.
type BackfillResult struct {
	Linked int `json:"linked"`
}

// Reconciliation is the outcome of counting the drawer of a closing shift.
type Reconciliation struct {
	Shift      *Shift     `json:"shift"`
	Evaluation Evaluation `json:"evaluation"`
}
