package shift

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/httpx"
	"github.com/georgemunganga/tillkeeper/internal/modules/audit"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
	"github.com/georgemunganga/tillkeeper/internal/modules/businessday"
	"github.com/georgemunganga/tillkeeper/internal/platform/cache"
	"github.com/georgemunganga/tillkeeper/internal/platform/tz"
)

// Service drives the shift lifecycle from open to close.
type Service interface {
	// Lifecycle
	OpenShift(ctx context.Context, actor auth.Actor, req OpenShiftRequest) (*Shift, error)
	ActivateShiftOnFirstActivity(ctx context.Context, actor auth.Actor, shiftID string, trigger ActivationTrigger) (*Shift, error)
	InitiateClosing(ctx context.Context, actor auth.Actor, shiftID string) (*Shift, error)
	ReconcileCash(ctx context.Context, actor auth.Actor, shiftID string, req ReconcileRequest) (*Reconciliation, error)
	ApproveVariance(ctx context.Context, actor auth.Actor, shiftID string, req ApproveVarianceRequest) (*Shift, error)
	FinalizeReconciliation(ctx context.Context, actor auth.Actor, shiftID string) (*Shift, error)
	CloseShiftDirect(ctx context.Context, actor auth.Actor, shiftID string, req CloseShiftRequest) (*Shift, error)

	// Reads
	GetShift(ctx context.Context, actor auth.Actor, shiftID string) (*Shift, error)
	ListStoreShifts(ctx context.Context, actor auth.Actor, storeID, status string) ([]*Shift, error)
	ActiveShiftForTerminal(ctx context.Context, actor auth.Actor, terminalID string) (*Shift, error)
	GetSummary(ctx context.Context, actor auth.Actor, shiftID string) (*Summary, error)

	// RequireWorkingShift returns the shift when sales may post against it.
	RequireWorkingShift(ctx context.Context, shiftID uuid.UUID) (*Shift, error)

	BackfillBusinessDays(ctx context.Context, actor auth.Actor, storeID string) (*BackfillResult, error)
}

// Allocator assigns the next shift number on a terminal.
type Allocator interface {
	Next(ctx context.Context, tx Tx, terminalID uuid.UUID, loc *time.Location, now time.Time) (Allocation, error)
}

// Dependencies are the collaborators of the shift service. Shifts is bound
// to the pool and serves reads outside a unit of work.
type Dependencies struct {
	Shifts     Repository
	UnitOfWork UnitOfWork
	Directory  Directory
	Access     auth.AccessControl
	Allocator  Allocator
	Associator *businessday.Associator
	Engine     *Engine
	Cache      cache.Cache
	Clock      Clock
	Logger     *zap.Logger
}

const listLimit = 200

type service struct {
	shifts     Repository
	uow        UnitOfWork
	directory  Directory
	access     auth.AccessControl
	allocator  Allocator
	associator *businessday.Associator
	engine     *Engine
	cache      cache.Cache
	clock      Clock
	logger     *zap.Logger
}

// NewService creates the shift service. Optional collaborators default to
// the number allocator, the default variance policy, no cache and the
// system clock.
func NewService(deps Dependencies) Service {
	s := &service{
		shifts:     deps.Shifts,
		uow:        deps.UnitOfWork,
		directory:  deps.Directory,
		access:     deps.Access,
		allocator:  deps.Allocator,
		associator: deps.Associator,
		engine:     deps.Engine,
		cache:      deps.Cache,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.allocator == nil {
		s.allocator = NumberAllocator{}
	}
	if s.associator == nil {
		s.associator = businessday.NewAssociator(s.logger)
	}
	if s.engine == nil {
		s.engine = NewEngine(DefaultVariancePolicy())
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	return s
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.Validation("INVALID_ID", "invalid %s id %q", kind, raw)
	}
	return id, nil
}

func (s *service) require(actor auth.Actor, scope auth.Scope) error {
	if !s.access.Check(actor, scope) {
		return apperr.Forbidden("SCOPE_REQUIRED", "missing scope %s", scope).With("scope", scope)
	}
	return nil
}

func forbidStore(actor auth.Actor, storeID uuid.UUID) error {
	if !actor.CanAccessStore(storeID) {
		return apperr.Forbidden("STORE_FORBIDDEN", "actor %s cannot access store %s", actor.UserID, storeID)
	}
	return nil
}

// load checks scope and store access and returns the shift as last committed.
func (s *service) load(ctx context.Context, actor auth.Actor, scope auth.Scope, rawID string) (*Shift, error) {
	if err := s.require(actor, scope); err != nil {
		return nil, err
	}
	id, err := parseID("shift", rawID)
	if err != nil {
		return nil, err
	}
	sh, err := s.shifts.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, errShiftNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	if err := forbidStore(actor, sh.StoreID); err != nil {
		return nil, err
	}
	return sh, nil
}

// mutate re-reads the shift under its row lock and runs fn in one unit of
// work. fn sees the current status and decides whether to save.
func (s *service) mutate(ctx context.Context, id uuid.UUID, fn func(ctx context.Context, tx Tx, cur *Shift) error) (*Shift, error) {
	var out *Shift
	err := s.uow.Within(ctx, func(ctx context.Context, tx Tx) error {
		cur, err := tx.Shifts().GetForUpdate(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return errShiftNotFound(id)
		}
		if err != nil {
			return err
		}
		if err := fn(ctx, tx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func save(ctx context.Context, tx Tx, sh *Shift) error {
	err := tx.Shifts().Update(ctx, sh)
	if errors.Is(err, ErrShiftLocked) {
		return apperr.Locked(CodeShiftLocked, "shift %s is closed and cannot change", sh.ID)
	}
	return err
}

// record writes an audit event inside a savepoint. Failures are logged and
// never undo the change being audited.
func (s *service) record(ctx context.Context, tx Tx, actor auth.Actor, sh *Shift, action audit.Action, meta map[string]any) {
	storeID := sh.StoreID
	ev := &audit.Event{
		Action:     action,
		EntityType: audit.EntityShift,
		EntityID:   sh.ID,
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
			zap.String("shift_id", sh.ID.String()),
			zap.Error(err),
		)
	}
}

// invalidate drops cached reports for the shift after a committed change.
func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.InvalidatePrefix(ctx, cache.ShiftKey(id.String())); err != nil {
		s.logger.Warn("failed to invalidate shift reports", zap.String("shift_id", id.String()), zap.Error(err))
	}
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func (s *service) OpenShift(ctx context.Context, actor auth.Actor, req OpenShiftRequest) (*Shift, error) {
	if err := s.require(actor, auth.ScopeShiftOpen); err != nil {
		return nil, err
	}
	if err := httpx.Validate(req); err != nil {
		return nil, err
	}
	if err := validateCash("opening_cash", req.OpeningCash, true); err != nil {
		return nil, err
	}
	storeID, terminalID, cashierID := uuid.MustParse(req.StoreID), uuid.MustParse(req.TerminalID), uuid.MustParse(req.CashierID)
	if err := forbidStore(actor, storeID); err != nil {
		return nil, err
	}

	st, err := s.directory.ValidateStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.ValidateTerminal(ctx, storeID, terminalID); err != nil {
		return nil, err
	}
	if _, err := s.directory.ValidateCashier(ctx, storeID, cashierID); err != nil {
		return nil, err
	}
	loc, err := tz.Load(st.Timezone)
	if err != nil {
		return nil, fmt.Errorf("store %s timezone: %w", storeID, err)
	}

	if existing, err := s.shifts.FindUnclosedByTerminal(ctx, terminalID); err == nil {
		return nil, errTerminalHasOpenShift(existing)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := s.clock.Now().UTC()
	var created *Shift
	err = s.uow.Within(ctx, func(ctx context.Context, tx Tx) error {
		alloc, err := s.allocator.Next(ctx, tx, terminalID, loc, now)
		if err != nil {
			return err
		}
		// Another opener may have committed while we waited for the lock.
		if existing, err := tx.Shifts().FindUnclosedByTerminal(ctx, terminalID); err == nil {
			return errTerminalHasOpenShift(existing)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		sh := &Shift{
			ID:          uuid.New(),
			StoreID:     storeID,
			TerminalID:  terminalID,
			CashierID:   cashierID,
			OpenedBy:    actor.UserID,
			Status:      StatusOpen,
			ShiftNumber: alloc.Number,
			LocalDate:   alloc.LocalDate,
			OpeningCash: req.OpeningCash,
			OpenedAt:    now,
		}
		s.associate(ctx, tx, sh, loc, now)

		switch err := tx.Shifts().Insert(ctx, sh); {
		case errors.Is(err, ErrUnclosedShiftExists):
			return errTerminalHasOpenShift(&Shift{TerminalID: terminalID})
		case errors.Is(err, ErrShiftNumberTaken):
			return apperr.Conflict(CodeShiftNumberTaken, "shift number %d is already taken on terminal %s", alloc.Number, terminalID)
		case err != nil:
			return err
		}

		s.record(ctx, tx, actor, sh, audit.ActionShiftOpened, map[string]any{
			"shift_number": sh.ShiftNumber,
			"local_date":   sh.LocalDate.Format(time.DateOnly),
			"opening_cash": money(sh.OpeningCash),
			"terminal_id":  terminalID.String(),
			"cashier_id":   cashierID.String(),
		})
		created = sh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shift opened",
		zap.String("shift_id", created.ID.String()),
		zap.String("terminal_id", terminalID.String()),
		zap.Int("shift_number", created.ShiftNumber),
	)
	return created, nil
}

// associate links sh to its business day inside a savepoint. A failure
// leaves the link empty for backfill.
func (s *service) associate(ctx context.Context, tx Tx, sh *Shift, loc *time.Location, now time.Time) {
	err := tx.Savepoint(ctx, "business_day", func(ctx context.Context) error {
		day, err := s.associator.Associate(ctx, tx.BusinessDays(), sh.StoreID, loc, now)
		if err != nil {
			return err
		}
		sh.BusinessDayID = &day.ID
		return nil
	})
	if err != nil {
		sh.BusinessDayID = nil
		s.logger.Warn("failed to associate business day",
			zap.String("shift_id", sh.ID.String()),
			zap.String("store_id", sh.StoreID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) ActivateShiftOnFirstActivity(ctx context.Context, actor auth.Actor, shiftID string, trigger ActivationTrigger) (*Shift, error) {
	if trigger == "" {
		trigger = TriggerManual
	}
	if !trigger.Valid() {
		return nil, apperr.Validation("INVALID_TRIGGER", "unknown activation trigger %q", trigger)
	}
	sh, err := s.load(ctx, actor, auth.ScopeShiftOpen, shiftID)
	if err != nil {
		return nil, err
	}
	if sh.Status != StatusOpen {
		return sh, nil
	}

	return s.mutate(ctx, sh.ID, func(ctx context.Context, tx Tx, cur *Shift) error {
		if cur.Status != StatusOpen {
			return nil
		}
		if err := ValidateTransition(cur.Status, StatusActive); err != nil {
			return err
		}
		cur.Status = StatusActive
		if err := save(ctx, tx, cur); err != nil {
			return err
		}
		s.record(ctx, tx, actor, cur, audit.ActionShiftActivated, map[string]any{
			"trigger": string(trigger),
		})
		return nil
	})
}

func (s *service) InitiateClosing(ctx context.Context, actor auth.Actor, shiftID string) (*Shift, error) {
	sh, err := s.load(ctx, actor, auth.ScopeShiftClose, shiftID)
	if err != nil {
		return nil, err
	}

	out, err := s.mutate(ctx, sh.ID, func(ctx context.Context, tx Tx, cur *Shift) error {
		switch {
		case cur.Status == StatusClosing:
			return apperr.Conflict(CodeShiftAlreadyClosing, "shift %s is already closing", cur.ID)
		case cur.Status == StatusClosed:
			return errAlreadyClosed(cur.ID)
		case !IsWorkingStatus(cur.Status):
			return errInvalidStatus("initiate closing of", cur.Status, StatusOpen, StatusActive)
		}
		if err := ValidateTransition(cur.Status, StatusClosing); err != nil {
			return err
		}

		expected, err := s.engine.CalculateExpectedCash(ctx, tx.Shifts(), cur)
		if err != nil {
			return err
		}
		from := cur.Status
		cur.Status = StatusClosing
		cur.ExpectedCash = decimal.NewNullDecimal(expected)
		if err := save(ctx, tx, cur); err != nil {
			return err
		}
		s.record(ctx, tx, actor, cur, audit.ActionShiftClosingStarted, map[string]any{
			"from_status":   string(from),
			"expected_cash": money(expected),
			"initiated_at":  s.clock.Now().UTC().Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.ID)
	return out, nil
}

func (s *service) ReconcileCash(ctx context.Context, actor auth.Actor, shiftID string, req ReconcileRequest) (*Reconciliation, error) {
	if err := validateCash("actual_cash", req.ActualCash, false); err != nil {
		return nil, err
	}
	sh, err := s.load(ctx, actor, auth.ScopeShiftReconcile, shiftID)
	if err != nil {
		return nil, err
	}

	var ev Evaluation
	out, err := s.mutate(ctx, sh.ID, func(ctx context.Context, tx Tx, cur *Shift) error {
		switch {
		case cur.Status == StatusClosed:
			return apperr.Locked(CodeShiftLocked, "shift %s is closed and cannot be reconciled", cur.ID)
		case cur.Status != StatusClosing:
			return errInvalidStatus("reconcile", cur.Status, StatusClosing)
		}

		expected, err := s.engine.CalculateExpectedCash(ctx, tx.Shifts(), cur)
		if err != nil {
			return err
		}
		variance := CalculateVariance(req.ActualCash, expected)
		ev = s.engine.EvaluateVarianceThreshold(variance, expected)
		reason, err := ValidateVarianceReason(req.VarianceReason, ev.Exceeded)
		if err != nil {
			return err
		}
		if err := ValidateTransition(cur.Status, ev.Target); err != nil {
			return err
		}

		cur.Status = ev.Target
		cur.ClosingCash = decimal.NewNullDecimal(req.ActualCash)
		cur.ExpectedCash = decimal.NewNullDecimal(expected)
		cur.VarianceAmount = decimal.NewNullDecimal(variance)
		cur.VarianceReason = reason
		if err := save(ctx, tx, cur); err != nil {
			return err
		}
		s.record(ctx, tx, actor, cur, audit.ActionShiftReconciled, map[string]any{
			"actual_cash":        money(req.ActualCash),
			"expected_cash":      money(expected),
			"variance":           money(variance),
			"threshold_exceeded": ev.Exceeded,
			"status":             string(ev.Target),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.ID)

	if ev.Exceeded {
		s.logger.Info("shift variance flagged for review",
			zap.String("shift_id", out.ID.String()),
			zap.String("variance", money(ev.Variance)),
		)
	}
	return &Reconciliation{Shift: out, Evaluation: ev}, nil
}

func (s *service) ApproveVariance(ctx context.Context, actor auth.Actor, shiftID string, req ApproveVarianceRequest) (*Shift, error) {
	reason, err := ValidateVarianceReason(&req.Reason, true)
	if err != nil {
		return nil, err
	}
	sh, err := s.load(ctx, actor, auth.ScopeShiftApproveVariance, shiftID)
	if err != nil {
		return nil, err
	}

	out, err := s.mutate(ctx, sh.ID, func(ctx context.Context, tx Tx, cur *Shift) error {
		if cur.Status != StatusVarianceReview {
			return errInvalidStatus("approve the variance of", cur.Status, StatusVarianceReview)
		}
		if err := ValidateTransition(cur.Status, StatusClosed); err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		approver := actor.UserID
		cur.Status = StatusClosed
		cur.ApprovedBy = &approver
		cur.ApprovedAt = &now
		cur.ClosedAt = &now
		if cur.VarianceReason == nil {
			cur.VarianceReason = reason
		}
		if err := save(ctx, tx, cur); err != nil {
			return err
		}
		s.record(ctx, tx, actor, cur, audit.ActionShiftVarianceApproved, map[string]any{
			"approval_reason": *reason,
			"variance":        money(cur.VarianceAmount.Decimal),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.ID)
	return out, nil
}

func (s *service) FinalizeReconciliation(ctx context.Context, actor auth.Actor, shiftID string) (*Shift, error) {
	sh, err := s.load(ctx, actor, auth.ScopeShiftReconcile, shiftID)
	if err != nil {
		return nil, err
	}

	out, err := s.mutate(ctx, sh.ID, func(ctx context.Context, tx Tx, cur *Shift) error {
		if cur.Status == StatusClosed {
			return errAlreadyClosed(cur.ID)
		}
		if cur.Status != StatusReconciling {
			return errInvalidStatus("finalize", cur.Status, StatusReconciling)
		}
		if err := ValidateTransition(cur.Status, StatusClosed); err != nil {
			return err
		}
		now := s.clock.Now().UTC()
		cur.Status = StatusClosed
		cur.ClosedAt = &now
		if err := save(ctx, tx, cur); err != nil {
			return err
		}
		s.record(ctx, tx, actor, cur, audit.ActionShiftFinalized, map[string]any{
			"variance": money(cur.VarianceAmount.Decimal),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.ID)
	return out, nil
}

func (s *service) CloseShiftDirect(ctx context.Context, actor auth.Actor, shiftID string, req CloseShiftRequest) (*Shift, error) {
	if err := validateCash("actual_cash", req.ActualCash, true); err != nil {
		return nil, err
	}
	sh, err := s.load(ctx, actor, auth.ScopeShiftClose, shiftID)
	if err != nil {
		return nil, err
	}

	out, err := s.mutate(ctx, sh.ID, func(ctx context.Context, tx Tx, cur *Shift) error {
		switch cur.Status {
		case StatusClosed:
			return errAlreadyClosed(cur.ID)
		case StatusOpen, StatusActive, StatusClosing:
		default:
			return errInvalidStatus("directly close", cur.Status, StatusOpen, StatusActive, StatusClosing)
		}
		if err := ValidateTransition(cur.Status, StatusClosed); err != nil {
			return err
		}

		from := cur.Status
		now := s.clock.Now().UTC()
		cur.Status = StatusClosed
		cur.ClosingCash = decimal.NewNullDecimal(req.ActualCash)
		cur.ClosedAt = &now
		// Expected cash exists only when closing was initiated first.
		if cur.ExpectedCash.Valid {
			cur.VarianceAmount = decimal.NewNullDecimal(CalculateVariance(req.ActualCash, cur.ExpectedCash.Decimal))
		}
		if err := save(ctx, tx, cur); err != nil {
			return err
		}
		s.record(ctx, tx, actor, cur, audit.ActionShiftClosed, map[string]any{
			"from_status":  string(from),
			"closing_cash": money(req.ActualCash),
			"direct":       true,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.snapshot(ctx, out)
	s.invalidate(ctx, out.ID)
	s.logger.Info("shift closed directly", zap.String("shift_id", out.ID.String()))
	return out, nil
}

// snapshot persists the tender breakdown of a closed shift. Failures are
// logged; GetSummary falls back to live totals.
func (s *service) snapshot(ctx context.Context, sh *Shift) {
	sum, err := s.liveSummary(ctx, sh)
	if err == nil {
		sum.Snapshot = true
		err = s.shifts.SaveSummary(ctx, sum)
	}
	if err != nil {
		s.logger.Warn("failed to snapshot shift summary", zap.String("shift_id", sh.ID.String()), zap.Error(err))
	}
}

func (s *service) liveSummary(ctx context.Context, sh *Shift) (*Summary, error) {
	totals, err := s.shifts.TenderTotals(ctx, sh.ID)
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		ShiftID:      sh.ID,
		TenderTotals: totals,
		ClosingCash:  sh.ClosingCash,
		TakenAt:      s.clock.Now().UTC(),
	}
	for _, t := range totals {
		sum.TransactionCount += t.Count
	}
	return sum, nil
}

func (s *service) GetShift(ctx context.Context, actor auth.Actor, shiftID string) (*Shift, error) {
	return s.load(ctx, actor, auth.ScopeShiftRead, shiftID)
}

func (s *service) ListStoreShifts(ctx context.Context, actor auth.Actor, storeID, status string) ([]*Shift, error) {
	if err := s.require(actor, auth.ScopeShiftRead); err != nil {
		return nil, err
	}
	id, err := parseID("store", storeID)
	if err != nil {
		return nil, err
	}
	if err := forbidStore(actor, id); err != nil {
		return nil, err
	}
	var filter Status
	if status != "" {
		if filter, err = ParseStatus(status); err != nil {
			return nil, apperr.Validation("INVALID_STATUS_FILTER", "unknown shift status %q", status)
		}
	}
	return s.shifts.ListByStore(ctx, id, filter, listLimit)
}

func (s *service) ActiveShiftForTerminal(ctx context.Context, actor auth.Actor, terminalID string) (*Shift, error) {
	if err := s.require(actor, auth.ScopeShiftRead); err != nil {
		return nil, err
	}
	id, err := parseID("terminal", terminalID)
	if err != nil {
		return nil, err
	}
	sh, err := s.shifts.FindUnclosedByTerminal(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(CodeNoActiveShift, "terminal %s has no unclosed shift", id)
	}
	if err != nil {
		return nil, err
	}
	if err := forbidStore(actor, sh.StoreID); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *service) GetSummary(ctx context.Context, actor auth.Actor, shiftID string) (*Summary, error) {
	sh, err := s.load(ctx, actor, auth.ScopeShiftRead, shiftID)
	if err != nil {
		return nil, err
	}
	if sh.Status == StatusClosed {
		sum, err := s.shifts.GetSummary(ctx, sh.ID)
		if err == nil {
			return sum, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	key := cache.ShiftKey(sh.ID.String(), "summary")
	var cached Summary
	hit, err := s.cache.Load(ctx, key, &cached)
	if err != nil {
		s.logger.Debug("summary cache unavailable", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	sum, err := s.liveSummary(ctx, sh)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Store(ctx, key, sum); err != nil {
		s.logger.Debug("failed to cache summary", zap.String("key", key), zap.Error(err))
	}
	return sum, nil
}

func (s *service) RequireWorkingShift(ctx context.Context, shiftID uuid.UUID) (*Shift, error) {
	sh, err := s.shifts.Get(ctx, shiftID)
	if errors.Is(err, ErrNotFound) {
		return nil, errShiftNotFound(shiftID)
	}
	if err != nil {
		return nil, err
	}
	switch {
	case sh.Status == StatusClosed:
		return nil, apperr.Locked(CodeShiftLocked, "shift %s is closed", sh.ID)
	case !IsWorkingStatus(sh.Status):
		return nil, apperr.InvalidState(CodeShiftNotWorking, "shift %s is %s and cannot accept activity", sh.ID, sh.Status).
			With("current", sh.Status).
			With("allowed", []Status{StatusOpen, StatusActive})
	}
	return sh, nil
}

func (s *service) BackfillBusinessDays(ctx context.Context, actor auth.Actor, storeID string) (*BackfillResult, error) {
	if err := s.require(actor, auth.ScopeShiftBackfill); err != nil {
		return nil, err
	}
	id, err := parseID("store", storeID)
	if err != nil {
		return nil, err
	}
	if err := forbidStore(actor, id); err != nil {
		return nil, err
	}
	if _, err := s.directory.ValidateStore(ctx, id); err != nil {
		return nil, err
	}

	pending, err := s.shifts.ListMissingBusinessDay(ctx, id)
	if err != nil {
		return nil, err
	}
	result := &BackfillResult{}
	for _, sh := range pending {
		err := s.uow.Within(ctx, func(ctx context.Context, tx Tx) error {
			day, err := s.associator.ForDate(ctx, tx.BusinessDays(), id, sh.LocalDate)
			if err != nil {
				return err
			}
			if err := tx.Shifts().SetBusinessDay(ctx, sh.ID, day.ID); err != nil {
				return err
			}
			sh.BusinessDayID = &day.ID
			s.record(ctx, tx, actor, sh, audit.ActionShiftDayBackfilled, map[string]any{
				"business_day_id": day.ID.String(),
				"business_date":   day.Date(),
			})
			return nil
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("failed to backfill business day",
				zap.String("shift_id", sh.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Linked++
	}

	s.logger.Info("business day backfill finished",
		zap.String("store_id", id.String()),
		zap.Int("pending", len(pending)),
		zap.Int("linked", result.Linked),
	)
	return result, nil
}
