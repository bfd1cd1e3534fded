package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/georgemunganga/tillkeeper/internal/modules/user"
)

// Actor is the authenticated principal behind a request.
type Actor struct {
	UserID  uuid.UUID  `json:"user_id"`
	Role    user.Role  `json:"role"`
	StoreID *uuid.UUID `json:"store_id,omitempty"`
}

// CanAccessStore reports whether the actor may act on storeID. Admins are
// not bound to a store.
func (a Actor) CanAccessStore(storeID uuid.UUID) bool {
	if a.Role == user.RoleAdmin {
		return true
	}
	return a.StoreID != nil && *a.StoreID == storeID
}

// System is the actor used by internal jobs such as the backfill CLI.
func System() Actor {
	return Actor{UserID: uuid.Nil, Role: user.RoleAdmin}
}

type actorKey struct{}

// WithActor stores a on ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored on ctx by the authentication middleware.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
