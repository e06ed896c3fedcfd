package repository

import (
	"context"
	"time"

	"relaydesk/internal/domain"
	"relaydesk/internal/domain/channel"
	"relaydesk/internal/domain/message"
	"relaydesk/internal/domain/thread"

	"github.com/google/uuid"
)

type ChannelRepository interface {
	Create(ctx context.Context, c *channel.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (channel.Channel, error)
	// GetBySenderIdentifier resolves the channel a provider webhook
	// belongs to (e.g. the Cloud API phone number id).
	GetBySenderIdentifier(ctx context.Context, chType domain.ChannelType, senderIdentifier string) (channel.Channel, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]channel.Channel, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type EmailThreadRepository interface {
	Create(ctx context.Context, t *thread.EmailThread) error
	GetByID(ctx context.Context, id uuid.UUID) (thread.EmailThread, error)
	GetByToken(ctx context.Context, channelID uuid.UUID, token string) (thread.EmailThread, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID, page, limit int) ([]thread.EmailThread, int64, error)
	UpdateInboundRollup(ctx context.Context, id uuid.UUID, fromName, fromAddress string, at time.Time) error
	UpdateOutboundRollup(ctx context.Context, id uuid.UUID, toName, toAddress string, at time.Time) error
	SetContactRef(ctx context.Context, id uuid.UUID, refType domain.ContactRefType, refID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type WhatsAppThreadRepository interface {
	Create(ctx context.Context, t *thread.WhatsAppThread) error
	GetByID(ctx context.Context, id uuid.UUID) (thread.WhatsAppThread, error)
	GetByPhone(ctx context.Context, channelID uuid.UUID, phone string) (thread.WhatsAppThread, error)
	// UpsertByPhone resolves-or-creates the thread for a remote phone
	// number. Concurrent first-contact inserts collapse onto the same
	// row via the (channel_id, remote_phone_number) unique constraint.
	UpsertByPhone(ctx context.Context, t *thread.WhatsAppThread) error
	ListByChannel(ctx context.Context, channelID uuid.UUID, page, limit int) ([]thread.WhatsAppThread, int64, error)
	UpdateInboundRollup(ctx context.Context, id uuid.UUID, preview string, at time.Time) error
	UpdateOutboundRollup(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkRead(ctx context.Context, id uuid.UUID) error
	SetContactRef(ctx context.Context, id uuid.UUID, refType domain.ContactRefType, refID uuid.UUID) error
	// LockForUpdate takes a row-level lock on the thread. Only
	// meaningful inside a transaction; serializes conversation-thread
	// activation.
	LockForUpdate(ctx context.Context, id uuid.UUID) (thread.WhatsAppThread, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ConversationThreadRepository interface {
	Create(ctx context.Context, t *thread.ConversationThread) error
	GetByID(ctx context.Context, id uuid.UUID) (thread.ConversationThread, error)
	// FindActive returns the single open conversation thread, or
	// ErrNotFound when the history is unsegmented.
	FindActive(ctx context.Context, whatsappThreadID uuid.UUID) (thread.ConversationThread, error)
	Close(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByThread(ctx context.Context, whatsappThreadID uuid.UUID) ([]thread.ConversationThread, error)
	CountByThread(ctx context.Context, whatsappThreadID uuid.UUID) (int64, error)
	DeleteByThread(ctx context.Context, whatsappThreadID uuid.UUID) error
}

// MessageSearchFilter narrows full-text message search.
type MessageSearchFilter struct {
	TeamID    uuid.UUID
	ChannelID uuid.NullUUID
	Query     string
	Direction domain.Direction
	From      *time.Time
	To        *time.Time
	Limit     int
}

type WhatsAppMessageRepository interface {
	Create(ctx context.Context, m *message.WhatsAppMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (message.WhatsAppMessage, error)
	GetByIdempotencyKey(ctx context.Context, threadID uuid.UUID, key string) (message.WhatsAppMessage, error)
	ListByThread(ctx context.Context, threadID uuid.UUID, page, limit int) ([]message.WhatsAppMessage, int64, error)
	ListByConversationThread(ctx context.Context, conversationThreadID uuid.UUID, page, limit int) ([]message.WhatsAppMessage, int64, error)
	CountByThread(ctx context.Context, threadID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error
	Search(ctx context.Context, filter MessageSearchFilter) ([]message.WhatsAppMessage, error)
	DeleteByThread(ctx context.Context, threadID uuid.UUID) error
}

type AttachmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (message.Attachment, error)
	// GetForTeam fetches an attachment only when its owning thread's
	// channel belongs to the team.
	GetForTeam(ctx context.Context, id, teamID uuid.UUID) (message.Attachment, error)
}

type EmailMessageRepository interface {
	Create(ctx context.Context, m *message.EmailMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (message.EmailMessage, error)
	GetByIdempotencyKey(ctx context.Context, threadID uuid.UUID, key string) (message.EmailMessage, error)
	ListByThread(ctx context.Context, threadID uuid.UUID, page, limit int) ([]message.EmailMessage, int64, error)
	UpdateStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error
	Search(ctx context.Context, filter MessageSearchFilter) ([]message.EmailMessage, error)
	DeleteByThread(ctx context.Context, threadID uuid.UUID) error
}
