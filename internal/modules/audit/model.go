package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names an audited state change.
type Action string

const (
	ActionShiftOpened           Action = "SHIFT_OPENED"
	ActionShiftActivated        Action = "SHIFT_ACTIVATED"
	ActionShiftClosingStarted   Action = "SHIFT_CLOSING_INITIATED"
	ActionShiftReconciled       Action = "SHIFT_CASH_RECONCILED"
	ActionShiftVarianceApproved Action = "SHIFT_VARIANCE_APPROVED"
	ActionShiftFinalized        Action = "SHIFT_RECONCILIATION_FINALIZED"
	ActionShiftClosed           Action = "SHIFT_CLOSED"
	ActionShiftDayBackfilled    Action = "SHIFT_BUSINESS_DAY_BACKFILLED"
	ActionSaleRecorded          Action = "POS_SALE_RECORDED"
	ActionSaleRefunded          Action = "POS_SALE_REFUNDED"
)

// Entity types recorded in the log.
const (
	EntityShift       = "SHIFT"
	EntityTransaction = "POS_TRANSACTION"
)

// Event is one audit log row.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Action     Action         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	StoreID    *uuid.UUID     `json:"store_id,omitempty"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}
