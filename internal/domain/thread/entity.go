package thread

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// EmailThread represents the email_threads table. Reply threading is
// keyed by Token, which is embedded in outbound mail and echoed back by
// the provider on replies.
type EmailThread struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	TeamID    uuid.UUID
	Token     string
	Subject   string

	ContactType sql.NullString
	ContactID   uuid.NullUUID

	LastInboundFrom     sql.NullString
	LastInboundAddress  sql.NullString
	LastInboundAt       sql.NullTime
	LastOutboundTo      sql.NullString
	LastOutboundAddress sql.NullString
	LastOutboundAt      sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WhatsAppThread represents the whatsapp_threads table. One row per
// remote phone number per channel; this is the "contact" a user sees.
type WhatsAppThread struct {
	ID                uuid.UUID
	ChannelID         uuid.UUID
	TeamID            uuid.UUID
	RemotePhoneNumber string
	RemoteDisplayName sql.NullString

	ContactType sql.NullString
	ContactID   uuid.NullUUID

	IsUnread           bool
	LastMessagePreview sql.NullString
	LastInboundAt      sql.NullTime
	LastOutboundAt     sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConversationThread represents the conversation_threads table: a
// labeled slice of a WhatsApp thread's history. At most one row per
// WhatsApp thread has EndedAt unset.
type ConversationThread struct {
	ID               uuid.UUID
	UUID             uuid.UUID
	WhatsAppThreadID uuid.UUID
	TeamID           uuid.UUID
	Label            string
	StartedAt        time.Time
	EndedAt          sql.NullTime
	CreatedBy        uuid.UUID
	CreatedAt        time.Time
}

func (EmailThread) TableName() string {
	return "email_threads"
}

func (WhatsAppThread) TableName() string {
	return "whatsapp_threads"
}

func (ConversationThread) TableName() string {
	return "conversation_threads"
}

func (t ConversationThread) Active() bool {
	return !t.EndedAt.Valid
}
