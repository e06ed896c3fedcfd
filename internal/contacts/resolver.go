package contacts

import (
	"context"

	"relaydesk/internal/domain"

	"github.com/google/uuid"
)

// Ref points at a CRM entity without importing the CRM's data model.
type Ref struct {
	Type domain.ContactRefType
	ID   uuid.UUID
}

// Resolver is the CRM-side collaborator. The router calls it
// opportunistically after persisting inbound messages; its failures
// never block message flow.
type Resolver interface {
	ResolveByPhone(ctx context.Context, phone string) (Ref, bool, error)
	ResolveByEmail(ctx context.Context, email string) (Ref, bool, error)
	CreateFromPhone(ctx context.Context, phone, displayName string) (Ref, error)
	CreateFromEmail(ctx context.Context, email, displayName string) (Ref, error)
	// SetWhatsAppAvailability flags the contact's number as reachable
	// over WhatsApp after a successful delivery.
	SetWhatsAppAvailability(ctx context.Context, ref Ref, available bool) error
}

// NoopResolver satisfies Resolver for deployments without a CRM
// backend wired in.
type NoopResolver struct{}

func (NoopResolver) ResolveByPhone(ctx context.Context, phone string) (Ref, bool, error) {
	return Ref{}, false, nil
}

func (NoopResolver) ResolveByEmail(ctx context.Context, email string) (Ref, bool, error) {
	return Ref{}, false, nil
}

func (NoopResolver) CreateFromPhone(ctx context.Context, phone, displayName string) (Ref, error) {
	return Ref{}, nil
}

func (NoopResolver) CreateFromEmail(ctx context.Context, email, displayName string) (Ref, error) {
	return Ref{}, nil
}

func (NoopResolver) SetWhatsAppAvailability(ctx context.Context, ref Ref, available bool) error {
	return nil
}
