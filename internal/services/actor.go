package services

import (
	"context"

	"relaydesk/internal/domain"

	"github.com/google/uuid"
)

// Actor is the authenticated caller. Resolved once by the auth
// middleware and passed explicitly; services never consult globals.
type Actor struct {
	UserID uuid.UUID
	TeamID uuid.UUID
	Role   domain.ActorRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == domain.ActorRoleAdmin
}

type actorCtxKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorCtxKey{}).(Actor)
	return actor, ok
}
