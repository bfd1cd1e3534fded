package audit

import (
	"context"

	"github.com/google/uuid"
)

// Recorder appends audit events. Callers treat failures as non-fatal.
type Recorder interface {
	Record(ctx context.Context, e *Event) error
}

// Reader lists the audit trail of one entity, oldest first.
type Reader interface {
	ListByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]*Event, error)
}
