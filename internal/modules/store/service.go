package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/httpx"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
	"github.com/georgemunganga/tillkeeper/internal/modules/user"
)

// Service manages the store directory: stores, their terminals and cashiers.
type Service interface {
	// Store operations
	CreateStore(ctx context.Context, actor auth.Actor, req CreateStoreRequest) (*Store, error)
	GetStore(ctx context.Context, actor auth.Actor, id string) (*Store, error)
	ListStores(ctx context.Context, actor auth.Actor) ([]*Store, error)

	// Terminal operations
	AddTerminal(ctx context.Context, actor auth.Actor, storeID string, req CreateTerminalRequest) (*Terminal, error)
	ListTerminals(ctx context.Context, actor auth.Actor, storeID string) ([]*Terminal, error)
	RetireTerminal(ctx context.Context, actor auth.Actor, terminalID string) (*Terminal, error)

	// Cashier operations
	AddCashier(ctx context.Context, actor auth.Actor, storeID string, req CreateCashierRequest) (*Cashier, error)
	ListCashiers(ctx context.Context, actor auth.Actor, storeID string) ([]*Cashier, error)
	DeactivateCashier(ctx context.Context, actor auth.Actor, cashierID string) (*Cashier, error)
}

type service struct {
	stores    StoreRepository
	terminals TerminalRepository
	cashiers  CashierRepository
	logger    *zap.Logger
}

// NewService creates a new directory service.
func NewService(stores StoreRepository, terminals TerminalRepository, cashiers CashierRepository, logger *zap.Logger) Service {
	return &service{stores: stores, terminals: terminals, cashiers: cashiers, logger: logger}
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("INVALID_ID", "invalid %s id %q", kind, raw)
	}
	return id, nil
}

func forbidStore(actor auth.Actor, storeID uuid.UUID) error {
	if !actor.CanAccessStore(storeID) {
		return apperr.Forbidden("STORE_FORBIDDEN", "actor %s cannot access store %s", actor.UserID, storeID)
	}
	return nil
}

func (s *service) CreateStore(ctx context.Context, actor auth.Actor, req CreateStoreRequest) (*Store, error) {
	if actor.Role != user.RoleAdmin {
		return nil, apperr.Forbidden("ADMIN_ONLY", "only admins can create stores")
	}
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	country := req.Country
	if country == "" {
		country = "Zambia"
	}
	st := &Store{
		ID:       uuid.New(),
		Name:     strings.TrimSpace(req.Name),
		Timezone: req.Timezone,
		Address:  req.Address,
		City:     req.City,
		Country:  country,
		IsActive: true,
	}
	if err := s.stores.CreateStore(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("store created", zap.String("store_id", st.ID.String()), zap.String("timezone", st.Timezone))
	return st, nil
}

func (s *service) GetStore(ctx context.Context, actor auth.Actor, id string) (*Store, error) {
	storeID, err := parseID("store", id)
	if err != nil {
		return nil, err
	}
	if err := forbidStore(actor, storeID); err != nil {
		return nil, err
	}
	st, err := s.stores.GetStoreByID(ctx, storeID)
	if errors.Is(err, ErrStoreNotFound) {
		return nil, apperr.NotFound("STORE_NOT_FOUND", "store %s not found", storeID)
	}
	return st, err
}

func (s *service) ListStores(ctx context.Context, actor auth.Actor) ([]*Store, error) {
	if actor.Role == user.RoleAdmin {
		return s.stores.ListStores(ctx)
	}
	if actor.StoreID == nil {
		return []*Store{}, nil
	}
	st, err := s.stores.GetStoreByID(ctx, *actor.StoreID)
	if errors.Is(err, ErrStoreNotFound) {
		return []*Store{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []*Store{st}, nil
}

func (s *service) AddTerminal(ctx context.Context, actor auth.Actor, storeID string, req CreateTerminalRequest) (*Terminal, error) {
	st, err := s.GetStore(ctx, actor, storeID)
	if err != nil {
		return nil, err
	}
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	t := &Terminal{ID: uuid.New(), StoreID: st.ID, Name: strings.TrimSpace(req.Name), Status: TerminalActive}
	if err := s.terminals.CreateTerminal(ctx, t); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, apperr.Conflict("TERMINAL_EXISTS", "terminal %q already exists in this store", t.Name)
		}
		return nil, err
	}
	s.logger.Info("terminal added", zap.String("store_id", st.ID.String()), zap.String("terminal_id", t.ID.String()))
	return t, nil
}

func (s *service) ListTerminals(ctx context.Context, actor auth.Actor, storeID string) ([]*Terminal, error) {
	st, err := s.GetStore(ctx, actor, storeID)
	if err != nil {
		return nil, err
	}
	return s.terminals.ListTerminals(ctx, st.ID)
}

func (s *service) RetireTerminal(ctx context.Context, actor auth.Actor, terminalID string) (*Terminal, error) {
	id, err := parseID("terminal", terminalID)
	if err != nil {
		return nil, err
	}
	t, err := s.terminals.GetTerminalByID(ctx, id)
	if errors.Is(err, ErrTerminalNotFound) {
		return nil, apperr.NotFound("TERMINAL_NOT_FOUND", "terminal %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := forbidStore(actor, t.StoreID); err != nil {
		return nil, err
	}
	if t.Status == TerminalRetired {
		return t, nil
	}
	if err := s.terminals.SetTerminalStatus(ctx, id, TerminalRetired); err != nil {
		return nil, err
	}
	t.Status = TerminalRetired
	s.logger.Info("terminal retired", zap.String("terminal_id", id.String()))
	return t, nil
}

func (s *service) AddCashier(ctx context.Context, actor auth.Actor, storeID string, req CreateCashierRequest) (*Cashier, error) {
	st, err := s.GetStore(ctx, actor, storeID)
	if err != nil {
		return nil, err
	}
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	c := &Cashier{
		ID:           uuid.New(),
		StoreID:      st.ID,
		Name:         strings.TrimSpace(req.Name),
		EmployeeCode: strings.TrimSpace(req.EmployeeCode),
		IsActive:     true,
	}
	if req.UserID != "" {
		uid := uuid.MustParse(req.UserID)
		c.UserID = &uid
	}
	if err := s.cashiers.CreateCashier(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, apperr.Conflict("CASHIER_EXISTS", "employee code %q already enrolled in this store", c.EmployeeCode)
		}
		return nil, err
	}
	s.logger.Info("cashier enrolled", zap.String("store_id", st.ID.String()), zap.String("cashier_id", c.ID.String()))
	return c, nil
}

func (s *service) ListCashiers(ctx context.Context, actor auth.Actor, storeID string) ([]*Cashier, error) {
	st, err := s.GetStore(ctx, actor, storeID)
	if err != nil {
		return nil, err
	}
	return s.cashiers.ListCashiers(ctx, st.ID)
}

func (s *service) DeactivateCashier(ctx context.Context, actor auth.Actor, cashierID string) (*Cashier, error) {
	id, err := parseID("cashier", cashierID)
	if err != nil {
		return nil, err
	}
	c, err := s.cashiers.GetCashierByID(ctx, id)
	if errors.Is(err, ErrCashierNotFound) {
		return nil, apperr.NotFound("CASHIER_NOT_FOUND", "cashier %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := forbidStore(actor, c.StoreID); err != nil {
		return nil, err
	}
	if !c.IsActive {
		return c, nil
	}
	if err := s.cashiers.SetCashierActive(ctx, id, false); err != nil {
		return nil, err
	}
	c.IsActive = false
	s.logger.Info("cashier deactivated", zap.String("cashier_id", id.String()))
	return c, nil
}
