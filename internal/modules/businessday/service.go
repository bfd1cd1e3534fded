package businessday

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
)

// Service exposes read access to business days.
type Service struct {
	repo   Repository
	access auth.AccessControl
}

func NewService(repo Repository, access auth.AccessControl) *Service {
	return &Service{repo: repo, access: access}
}

// Current returns the open business day of the store.
func (s *Service) Current(ctx context.Context, actor auth.Actor, storeID string) (*BusinessDay, error) {
	id, err := uuid.Parse(storeID)
	if err != nil {
		return nil, apperr.Validation("INVALID_ID", "invalid store id %q", storeID)
	}
	if !s.access.Check(actor, auth.ScopeShiftRead) || !actor.CanAccessStore(id) {
		return nil, apperr.Forbidden("FORBIDDEN", "actor cannot read business days of store %s", id)
	}
	day, err := s.repo.FindLatestOpen(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("BUSINESS_DAY_NOT_FOUND", "store %s has no open business day", id)
	}
	return day, err
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, dayID string) (*BusinessDay, error) {
	id, err := uuid.Parse(dayID)
	if err != nil {
		return nil, apperr.Validation("INVALID_ID", "invalid business day id %q", dayID)
	}
	day, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("BUSINESS_DAY_NOT_FOUND", "business day %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if !s.access.Check(actor, auth.ScopeShiftRead) || !actor.CanAccessStore(day.StoreID) {
		return nil, apperr.Forbidden("FORBIDDEN", "actor cannot read business day %s", id)
	}
	return day, nil
}
