package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStoreNotFound    = errors.New("store not found")
	ErrTerminalNotFound = errors.New("terminal not found")
	ErrCashierNotFound  = errors.New("cashier not found")
	ErrDuplicate        = errors.New("duplicate directory entry")
)

// Store is a physical shop. Its Timezone (IANA name) defines the local
// calendar used for shift numbering and business days.
type Store struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Timezone  string    `json:"timezone"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Country   string    `json:"country"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TerminalStatus is the lifecycle of a register.
type TerminalStatus string

const (
	TerminalActive  TerminalStatus = "ACTIVE"
	TerminalRetired TerminalStatus = "RETIRED"
)

// Terminal is a register with a cash drawer.
type Terminal struct {
	ID        uuid.UUID      `json:"id"`
	StoreID   uuid.UUID      `json:"store_id"`
	Name      string         `json:"name"`
	Status    TerminalStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Cashier is the person accountable for a drawer during a shift.
type Cashier struct {
	ID           uuid.UUID  `json:"id"`
	StoreID      uuid.UUID  `json:"store_id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	Name         string     `json:"name"`
	EmployeeCode string     `json:"employee_code"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateStoreRequest holds data for creating a store.
type CreateStoreRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Timezone string `json:"timezone" validate:"required,timezone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Country  string `json:"country"`
}

// CreateTerminalRequest holds data for registering a terminal.
type CreateTerminalRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateCashierRequest holds data for enrolling a cashier.
type CreateCashierRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	EmployeeCode string `json:"employee_code" validate:"required,max=50"`
	UserID       string `json:"user_id" validate:"omitempty,uuid"`
}
