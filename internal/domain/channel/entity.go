package channel

import (
	"time"

	"relaydesk/internal/domain"

	"github.com/google/uuid"
)

// Channel represents the channels table. A channel is a named sender
// identity (a mailbox or a WhatsApp business number) owned by a team.
type Channel struct {
	ID               uuid.UUID
	Name             string
	Type             domain.ChannelType
	Provider         string
	SenderIdentifier string
	Visibility       domain.ChannelVisibility
	CreatedBy        uuid.UUID
	TeamID           uuid.UUID
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Channel) TableName() string {
	return "channels"
}

// VisibleTo reports whether an actor may see this channel. Private
// channels are restricted to their creator and team admins.
func (c Channel) VisibleTo(actorID uuid.UUID, role domain.ActorRole) bool {
	if c.Visibility == domain.ChannelVisibilityTeam {
		return true
	}
	return c.CreatedBy == actorID || role == domain.ActorRoleAdmin
}
