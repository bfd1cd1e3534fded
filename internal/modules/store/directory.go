package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
)

// Directory validates the store, terminal and cashier referenced by a shift
// operation. Every method returns an apperr-classified error.
type Directory struct {
	stores    StoreRepository
	terminals TerminalRepository
	cashiers  CashierRepository
}

func NewDirectory(stores StoreRepository, terminals TerminalRepository, cashiers CashierRepository) *Directory {
	return &Directory{stores: stores, terminals: terminals, cashiers: cashiers}
}

func (d *Directory) ValidateStore(ctx context.Context, storeID uuid.UUID) (*Store, error) {
	st, err := d.stores.GetStoreByID(ctx, storeID)
	if errors.Is(err, ErrStoreNotFound) {
		return nil, apperr.NotFound("STORE_NOT_FOUND", "store %s not found", storeID)
	}
	if err != nil {
		return nil, err
	}
	if !st.IsActive {
		return nil, apperr.Validation("STORE_INACTIVE", "store %s is not active", storeID)
	}
	return st, nil
}

// ValidateTerminal requires an ACTIVE terminal that belongs to storeID.
func (d *Directory) ValidateTerminal(ctx context.Context, storeID, terminalID uuid.UUID) (*Terminal, error) {
	t, err := d.terminals.GetTerminalByID(ctx, terminalID)
	if errors.Is(err, ErrTerminalNotFound) {
		return nil, apperr.NotFound("TERMINAL_NOT_FOUND", "terminal %s not found", terminalID)
	}
	if err != nil {
		return nil, err
	}
	if t.StoreID != storeID {
		return nil, apperr.Validation("TERMINAL_STORE_MISMATCH", "terminal %s does not belong to store %s", terminalID, storeID)
	}
	if t.Status != TerminalActive {
		return nil, apperr.Validation("TERMINAL_RETIRED", "terminal %s is %s", terminalID, t.Status)
	}
	return t, nil
}

// ValidateCashier requires an active cashier enrolled at storeID.
func (d *Directory) ValidateCashier(ctx context.Context, storeID, cashierID uuid.UUID) (*Cashier, error) {
	c, err := d.cashiers.GetCashierByID(ctx, cashierID)
	if errors.Is(err, ErrCashierNotFound) {
		return nil, apperr.NotFound("CASHIER_NOT_FOUND", "cashier %s not found", cashierID)
	}
	if err != nil {
		return nil, err
	}
	if c.StoreID != storeID {
		return nil, apperr.Validation("CASHIER_STORE_MISMATCH", "cashier %s is not enrolled at store %s", cashierID, storeID)
	}
	if !c.IsActive {
		return nil, apperr.Validation("CASHIER_INACTIVE", "cashier %s is inactive", cashierID)
	}
	return c, nil
}
