package businessday

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status of a business day.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

var ErrNotFound = errors.New("business day not found")

// BusinessDay is a store's trading period. It is opened lazily by the first
// shift that needs one and closed by the store's day-close workflow, so a
// shift that runs past local midnight stays on the day it opened in.
type BusinessDay struct {
	ID           uuid.UUID  `json:"id"`
	StoreID      uuid.UUID  `json:"store_id"`
	BusinessDate time.Time  `json:"business_date"`
	Status       Status     `json:"status"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// Date formats BusinessDate as YYYY-MM-DD.
func (d *BusinessDay) Date() string {
	return d.BusinessDate.Format(time.DateOnly)
}

// DaySummary is the per-day reporting row that must exist for every
// business day a shift is linked to.
type DaySummary struct {
	ID            uuid.UUID `json:"id"`
	BusinessDayID uuid.UUID `json:"business_day_id"`
	StoreID       uuid.UUID `json:"store_id"`
	CreatedAt     time.Time `json:"created_at"`
}
