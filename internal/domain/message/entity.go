package message

import (
	"database/sql"
	"time"

	"relaydesk/internal/domain"

	"github.com/google/uuid"
)

// WhatsAppMessage represents the whatsapp_messages table. Body and
// direction are immutable after creation; only status and the
// delivery/read timestamps change, driven by provider callbacks.
type WhatsAppMessage struct {
	ID                   uuid.UUID
	ThreadID             uuid.UUID
	ConversationThreadID uuid.NullUUID
	Direction            domain.Direction
	Type                 domain.MessageType
	Body                 sql.NullString
	TemplateName         sql.NullString
	TemplateParams       sql.NullString
	Status               domain.MessageStatus
	ProviderMessageID    sql.NullString
	IdempotencyKey       sql.NullString
	SentAt               sql.NullTime
	DeliveredAt          sql.NullTime
	ReadAt               sql.NullTime
	CreatedAt            time.Time

	// Relationships
	Attachments []Attachment `gorm:"polymorphic:Message;polymorphicValue:whatsapp"`
}

// EmailMessage represents the email_messages table.
type EmailMessage struct {
	ID                uuid.UUID
	ThreadID          uuid.UUID
	Direction         domain.Direction
	FromName          sql.NullString
	FromAddress       string
	ToAddress         string
	Subject           string
	Body              string
	Status            domain.MessageStatus
	ProviderMessageID sql.NullString
	IdempotencyKey    sql.NullString
	SentAt            sql.NullTime
	DeliveredAt       sql.NullTime
	CreatedAt         time.Time

	// Relationships
	Attachments []Attachment `gorm:"polymorphic:Message;polymorphicValue:email"`
}

// Attachment is an opaque media reference (URL + type + title). Actual
// bytes live in object storage; see internal/storage.
type Attachment struct {
	ID          uuid.UUID
	MessageID   uuid.UUID
	MessageType string
	URL         string
	MimeType    sql.NullString
	Title       sql.NullString
	StorageKey  sql.NullString
	CreatedAt   time.Time
}

func (WhatsAppMessage) TableName() string {
	return "whatsapp_messages"
}

func (EmailMessage) TableName() string {
	return "email_messages"
}

func (Attachment) TableName() string {
	return "attachments"
}
