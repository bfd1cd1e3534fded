package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role is the staff role a user acts under.
type Role string

const (
	RoleCashier      Role = "CASHIER"
	RoleShiftManager Role = "SHIFT_MANAGER"
	RoleStoreManager Role = "STORE_MANAGER"
	RoleAdmin        Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCashier, RoleShiftManager, RoleStoreManager, RoleAdmin:
		return true
	}
	return false
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// User is a staff account. Admins have no store; everyone else belongs to
// exactly one store.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Role         Role       `json:"role"`
	StoreID      *uuid.UUID `json:"store_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// RegisterRequest is the payload for creating a staff account.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      Role   `json:"role" validate:"required,oneof=CASHIER SHIFT_MANAGER STORE_MANAGER ADMIN"`
	StoreID   string `json:"store_id" validate:"omitempty,uuid"`
}
