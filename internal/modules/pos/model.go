package pos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod represents how a POS transaction was paid.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentCard        PaymentMethod = "CARD"
	PaymentMobileMoney PaymentMethod = "MOBILE_MONEY"
	PaymentVoucher     PaymentMethod = "VOUCHER"
)

// TxStatus represents the state of a POS transaction.
type TxStatus string

const (
	TxCompleted TxStatus = "COMPLETED"
	TxRefunded  TxStatus = "REFUNDED"
	TxFailed    TxStatus = "FAILED"
)

// Transaction records a payment taken at the counter during a shift. Only
// COMPLETED CASH transactions count towards the drawer's expected cash.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	StoreID       uuid.UUID       `json:"store_id"`
	ShiftID       uuid.UUID       `json:"shift_id"`
	CashierID     *uuid.UUID      `json:"cashier_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Reference     string          `json:"reference,omitempty"`
	Status        TxStatus        `json:"status"`
	ChangeGiven   decimal.Decimal `json:"change_given"`
	Notes         string          `json:"notes,omitempty"`
	RefundReason  *string         `json:"refund_reason,omitempty"`
	TransactedAt  time.Time       `json:"transacted_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// RecordSaleRequest is the payload for recording a POS payment.
type RecordSaleRequest struct {
	ShiftID       string          `json:"shift_id" validate:"required,uuid"`
	CashierID     string          `json:"cashier_id,omitempty" validate:"omitempty,uuid"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=CASH CARD MOBILE_MONEY VOUCHER"`
	Reference     string          `json:"reference,omitempty" validate:"max=120"`
	ChangeGiven   decimal.Decimal `json:"change_given"`
	Notes         string          `json:"notes,omitempty" validate:"max=500"`
}

// RefundRequest is the payload for refunding a POS transaction.
type RefundRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}
