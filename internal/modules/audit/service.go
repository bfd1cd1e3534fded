package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/apperr"
	"github.com/georgemunganga/tillkeeper/internal/modules/auth"
)

const defaultTrailLimit = 500

// Service reads the audit trail.
type Service struct {
	reader Reader
	access auth.AccessControl
}

func NewService(reader Reader, access auth.AccessControl) *Service {
	return &Service{reader: reader, access: access}
}

// Trail returns the events recorded against entityID. Non-admin actors only
// see events of their own store.
func (s *Service) Trail(ctx context.Context, actor auth.Actor, entityID string) ([]*Event, error) {
	if !s.access.Check(actor, auth.ScopeAuditRead) {
		return nil, apperr.Forbidden("FORBIDDEN", "role %s lacks %s", actor.Role, auth.ScopeAuditRead)
	}
	id, err := uuid.Parse(entityID)
	if err != nil {
		return nil, apperr.Validation("INVALID_ID", "entity_id must be a uuid")
	}
	events, err := s.reader.ListByEntity(ctx, id, defaultTrailLimit)
	if err != nil {
		return nil, err
	}
	visible := events[:0]
	for _, e := range events {
		if e.StoreID == nil || actor.CanAccessStore(*e.StoreID) {
			visible = append(visible, e)
		}
	}
	return visible, nil
}
