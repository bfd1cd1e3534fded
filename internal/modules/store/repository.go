package store

import (
	"context"

	"github.com/google/uuid"
)

// StoreRepository defines store data storage.
type StoreRepository interface {
	CreateStore(ctx context.Context, s *Store) error
	GetStoreByID(ctx context.Context, id uuid.UUID) (*Store, error)
	ListStores(ctx context.Context) ([]*Store, error)
}

// TerminalRepository defines terminal data storage.
type TerminalRepository interface {
	CreateTerminal(ctx context.Context, t *Terminal) error
	GetTerminalByID(ctx context.Context, id uuid.UUID) (*Terminal, error)
	ListTerminals(ctx context.Context, storeID uuid.UUID) ([]*Terminal, error)
	SetTerminalStatus(ctx context.Context, id uuid.UUID, status TerminalStatus) error
}

// CashierRepository defines cashier data storage.
type CashierRepository interface {
	CreateCashier(ctx context.Context, c *Cashier) error
	GetCashierByID(ctx context.Context, id uuid.UUID) (*Cashier, error)
	ListCashiers(ctx context.Context, storeID uuid.UUID) ([]*Cashier, error)
	SetCashierActive(ctx context.Context, id uuid.UUID, active bool) error
}
