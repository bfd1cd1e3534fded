package pos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/httpx"
	"github.com/georgemunganga/tillkeeper/internal/modules/audit"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
	"github.com/georgemunganga/tillkeeper/internal/modules/shift"
	"github.com/georgemunganga/tillkeeper/internal/platform/cache"
)

// Service defines POS business logic.
type Service interface {
	RecordSale(ctx context.Context, actor auth.Actor, req RecordSaleRequest) (*Transaction, error)
	GetTransaction(ctx context.Context, actor auth.Actor, id string) (*Transaction, error)
	ListShiftTransactions(ctx context.Context, actor auth.Actor, shiftID string) ([]*Transaction, error)
	RefundTransaction(ctx context.Context, actor auth.Actor, id string, req RefundRequest) (*Transaction, error)
}

// ShiftGate is the part of the shift service sales depend on.
type ShiftGate interface {
	RequireWorkingShift(ctx context.Context, shiftID uuid.UUID) (*shift.Shift, error)
	ActivateShiftOnFirstActivity(ctx context.Context, actor auth.Actor, shiftID string, trigger shift.ActivationTrigger) (*shift.Shift, error)
	GetShift(ctx context.Context, actor auth.Actor, shiftID string) (*shift.Shift, error)
}

// Dependencies are the collaborators of the POS service.
type Dependencies struct {
	Transactions Repository
	Transactor   Transactor
	Shifts       ShiftGate
	Access       auth.AccessControl
	Cache        cache.Cache
	Currency     string
	Clock        Clock
	Logger       *zap.Logger
}

const listLimit = 500

type service struct {
	repo     Repository
	txr      Transactor
	shifts   ShiftGate
	access   auth.AccessControl
	cache    cache.Cache
	currency string
	clock    Clock
	logger   *zap.Logger
}

func NewService(deps Dependencies) Service {
	s := &service{
		repo:     deps.Transactions,
		txr:      deps.Transactor,
		shifts:   deps.Shifts,
		access:   deps.Access,
		cache:    deps.Cache,
		currency: deps.Currency,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.currency == "" {
		s.currency = "ZMW"
	}
	return s
}

func (s *service) require(actor auth.Actor, scope auth.Scope) error {
	if !s.access.Check(actor, scope) {
		return apperr.Forbidden("SCOPE_REQUIRED", "missing scope %s", scope).With("scope", scope)
	}
	return nil
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("INVALID_ID", "invalid %s id %q", kind, raw)
	}
	return id, nil
}

func validateAmount(field string, amount decimal.Decimal, allowZero bool) error {
	if amount.IsNegative() || (!allowZero && amount.IsZero()) || !amount.Equal(amount.Round(2)) {
		return apperr.Validation("INVALID_AMOUNT", "%s must be a positive amount with at most two decimals", field).
			With("field", field)
	}
	return nil
}

func (s *service) RecordSale(ctx context.Context, actor auth.Actor, req RecordSaleRequest) (*Transaction, error) {
	if err := s.require(actor, auth.ScopePOSSell); err != nil {
		return nil, err
	}
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	if err := validateAmount("amount", req.Amount, false); err != nil {
		return nil, err
	}
	if err := validateAmount("change_given", req.ChangeGiven, true); err != nil {
		return nil, err
	}
	method := PaymentMethod(req.PaymentMethod)
	if method != PaymentCash && !req.ChangeGiven.IsZero() {
		return nil, apperr.Validation("CHANGE_NOT_ALLOWED", "change can only be given on cash payments")
	}

	shiftID := uuid.MustParse(req.ShiftID)
	sh, err := s.shifts.RequireWorkingShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessStore(sh.StoreID) {
		return nil, apperr.Forbidden("STORE_FORBIDDEN", "actor %s cannot access store %s", actor.UserID, sh.StoreID)
	}

	t := &Transaction{
		ID:            uuid.New(),
		StoreID:       sh.StoreID,
		ShiftID:       sh.ID,
		Amount:        req.Amount,
		Currency:      s.currency,
		PaymentMethod: method,
		Reference:     req.Reference,
		Status:        TxCompleted,
		ChangeGiven:   req.ChangeGiven,
		Notes:         req.Notes,
		TransactedAt:  s.clock.Now().UTC(),
	}
	if req.CashierID != "" {
		cashierID := uuid.MustParse(req.CashierID)
		t.CashierID = &cashierID
	} else {
		cashierID := sh.CashierID
		t.CashierID = &cashierID
	}

	err = s.txr.Within(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Transactions().Insert(ctx, t); err != nil {
			if errors.Is(err, ErrShiftNotWorking) {
				return s.notWorking(ctx, shiftID)
			}
			return err
		}
		s.record(ctx, tx, actor, t, audit.ActionSaleRecorded, map[string]any{
			"amount":         t.Amount.StringFixed(2),
			"payment_method": string(t.PaymentMethod),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, shiftID)

	if sh.Status == shift.StatusOpen {
		if _, err := s.shifts.ActivateShiftOnFirstActivity(ctx, actor, shiftID.String(), shift.TriggerFirstSale); err != nil {
			s.logger.Warn("failed to activate shift on first sale", zap.String("shift_id", shiftID.String()), zap.Error(err))
		}
	}
	return t, nil
}

// notWorking re-reads the shift to report why the guarded write found it
// closed to sales.
func (s *service) notWorking(ctx context.Context, shiftID uuid.UUID) error {
	if _, err := s.shifts.RequireWorkingShift(ctx, shiftID); err != nil {
		return err
	}
	return apperr.InvalidState(shift.CodeShiftNotWorking, "shift %s is not accepting sales", shiftID)
}

func (s *service) GetTransaction(ctx context.Context, actor auth.Actor, id string) (*Transaction, error) {
	if err := s.require(actor, auth.ScopeShiftRead); err != nil {
		return nil, err
	}
	txID, err := parseID("transaction", id)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, actor, txID)
}

func (s *service) load(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Transaction, error) {
	t, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("TRANSACTION_NOT_FOUND", "pos transaction %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessStore(t.StoreID) {
		return nil, apperr.Forbidden("STORE_FORBIDDEN", "actor %s cannot access store %s", actor.UserID, t.StoreID)
	}
	return t, nil
}

func (s *service) ListShiftTransactions(ctx context.Context, actor auth.Actor, shiftID string) ([]*Transaction, error) {
	sh, err := s.shifts.GetShift(ctx, actor, shiftID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByShift(ctx, sh.ID, listLimit)
}

func (s *service) RefundTransaction(ctx context.Context, actor auth.Actor, id string, req RefundRequest) (*Transaction, error) {
	if err := s.require(actor, auth.ScopePOSRefund); err != nil {
		return nil, err
	}
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	txID, err := parseID("transaction", id)
	if err != nil {
		return nil, err
	}
	t, err := s.load(ctx, actor, txID)
	if err != nil {
		return nil, err
	}
	if t.Status != TxCompleted {
		return nil, apperr.InvalidState("NOT_REFUNDABLE", "only COMPLETED transactions can be refunded, current status: %s", t.Status).
			With("current", t.Status)
	}
	if _, err := s.shifts.RequireWorkingShift(ctx, t.ShiftID); err != nil {
		return nil, err
	}

	var out *Transaction
	err = s.txr.Within(ctx, func(ctx context.Context, tx Tx) error {
		refunded, err := tx.Transactions().MarkRefunded(ctx, t.ID, req.Reason)
		if errors.Is(err, ErrNotRefundable) {
			if err := s.notWorking(ctx, t.ShiftID); err != nil {
				return err
			}
			return apperr.Conflict("NOT_REFUNDABLE", "pos transaction %s was refunded concurrently", t.ID)
		}
		if err != nil {
			return err
		}
		s.record(ctx, tx, actor, refunded, audit.ActionSaleRefunded, map[string]any{
			"amount":         refunded.Amount.StringFixed(2),
			"payment_method": string(refunded.PaymentMethod),
			"reason":         req.Reason,
		})
		out = refunded
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, t.ShiftID)
	return out, nil
}

func (s *service) record(ctx context.Context, tx Tx, actor auth.Actor, t *Transaction, action audit.Action, meta map[string]any) {
	storeID := t.StoreID
	meta["shift_id"] = t.ShiftID.String()
	ev := &audit.Event{
		Action:     action,
		EntityType: audit.EntityTransaction,
		EntityID:   t.ID,
		StoreID:    &storeID,
		Metadata:   meta,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if actor.UserID != uuid.Nil {
		actorID := actor.UserID
		ev.ActorID = &actorID
	}
	err := tx.Savepoint(ctx, "audit", func(ctx context.Context) error {
		return tx.Audit().Record(ctx, ev)
	})
	if err != nil {
		s.logger.Warn("failed to record audit event",
			zap.String("action", string(action)),
			zap.String("transaction_id", t.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) invalidate(ctx context.Context, shiftID uuid.UUID) {
	if err := s.cache.InvalidatePrefix(ctx, cache.ShiftKey(shiftID.String())); err != nil {
		s.logger.Warn("failed to invalidate shift reports", zap.String("shift_id", shiftID.String()), zap.Error(err))
	}
}
