package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/platform/database"
)

type rowScanner interface{ Scan(dest ...any) error }

// ---- Store ----

type storePostgres struct{ db database.DBTX }

func NewStorePostgresRepository(db database.DBTX) StoreRepository { return &storePostgres{db: db} }

func (r *storePostgres) CreateStore(ctx context.Context, s *Store) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stores (id, name, timezone, address, city, country, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Timezone, s.Address, s.City, s.Country, s.IsActive,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

const selectStore = `
	SELECT id, name, timezone, address, city, country, is_active, created_at, updated_at
	FROM stores`

func scanStore(row rowScanner) (*Store, error) {
	s := &Store{}
	err := row.Scan(&s.ID, &s.Name, &s.Timezone, &s.Address, &s.City, &s.Country,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *storePostgres) GetStoreByID(ctx context.Context, id uuid.UUID) (*Store, error) {
	s, err := scanStore(r.db.QueryRowContext(ctx, selectStore+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get store %s: %w", id, err)
	}
	return s, nil
}

func (r *storePostgres) ListStores(ctx context.Context) ([]*Store, error) {
	rows, err := r.db.QueryContext(ctx, selectStore+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()
	var stores []*Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

// ---- Terminal ----

type terminalPostgres struct{ db database.DBTX }

func NewTerminalPostgresRepository(db database.DBTX) TerminalRepository {
	return &terminalPostgres{db: db}
}

func (r *terminalPostgres) CreateTerminal(ctx context.Context, t *Terminal) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO terminals (id, store_id, name, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		t.ID, t.StoreID, t.Name, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert terminal: %w", err)
	}
	return nil
}

const selectTerminal = `
	SELECT id, store_id, name, status, created_at, updated_at
	FROM terminals`

func scanTerminal(row rowScanner) (*Terminal, error) {
	t := &Terminal{}
	err := row.Scan(&t.ID, &t.StoreID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *terminalPostgres) GetTerminalByID(ctx context.Context, id uuid.UUID) (*Terminal, error) {
	t, err := scanTerminal(r.db.QueryRowContext(ctx, selectTerminal+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTerminalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get terminal %s: %w", id, err)
	}
	return t, nil
}

func (r *terminalPostgres) ListTerminals(ctx context.Context, storeID uuid.UUID) ([]*Terminal, error) {
	rows, err := r.db.QueryContext(ctx, selectTerminal+` WHERE store_id = $1 ORDER BY name`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list terminals: %w", err)
	}
	defer rows.Close()
	var terminals []*Terminal
	for rows.Next() {
		t, err := scanTerminal(rows)
		if err != nil {
			return nil, err
		}
		terminals = append(terminals, t)
	}
	return terminals, rows.Err()
}

func (r *terminalPostgres) SetTerminalStatus(ctx context.Context, id uuid.UUID, status TerminalStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE terminals SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update terminal %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTerminalNotFound
	}
	return nil
}

// ---- Cashier ----

type cashierPostgres struct{ db database.DBTX }

func NewCashierPostgresRepository(db database.DBTX) CashierRepository {
	return &cashierPostgres{db: db}
}

func (r *cashierPostgres) CreateCashier(ctx context.Context, c *Cashier) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO cashiers (id, store_id, user_id, name, employee_code, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		c.ID, c.StoreID, c.UserID, c.Name, c.EmployeeCode, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert cashier: %w", err)
	}
	return nil
}

const selectCashier = `
	SELECT id, store_id, user_id, name, employee_code, is_active, created_at, updated_at
	FROM cashiers`

func scanCashier(row rowScanner) (*Cashier, error) {
	c := &Cashier{}
	var userID uuid.NullUUID
	err := row.Scan(&c.ID, &c.StoreID, &userID, &c.Name, &c.EmployeeCode,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if userID.Valid {
		c.UserID = &userID.UUID
	}
	return c, err
}

func (r *cashierPostgres) GetCashierByID(ctx context.Context, id uuid.UUID) (*Cashier, error) {
	c, err := scanCashier(r.db.QueryRowContext(ctx, selectCashier+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCashierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cashier %s: %w", id, err)
	}
	return c, nil
}

func (r *cashierPostgres) ListCashiers(ctx context.Context, storeID uuid.UUID) ([]*Cashier, error) {
	rows, err := r.db.QueryContext(ctx, selectCashier+` WHERE store_id = $1 ORDER BY name`, storeID)
	if err != nil {
		return nil, fmt.Errorf("list cashiers: %w", err)
	}
	defer rows.Close()
	var cashiers []*Cashier
	for rows.Next() {
		c, err := scanCashier(rows)
		if err != nil {
			return nil, err
		}
		cashiers = append(cashiers, c)
	}
	return cashiers, rows.Err()
}

func (r *cashierPostgres) SetCashierActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cashiers SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("update cashier %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCashierNotFound
	}
	return nil
}
