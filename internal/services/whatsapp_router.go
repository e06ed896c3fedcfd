package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"relaydesk/internal/contacts"
	"relaydesk/internal/domain"
	"relaydesk/internal/domain/channel"
	"relaydesk/internal/domain/message"
	"relaydesk/internal/domain/thread"
	"relaydesk/internal/gateway"
	"relaydesk/internal/repository"
	relay_errors "relaydesk/pkg/errors"
	"relaydesk/pkg/logger"

	"github.com/google/uuid"
)

// WhatsAppRouter attaches inbound webhook messages to threads and
// validates/dispatches outbound sends.
type WhatsAppRouter struct {
	channelRepo repository.ChannelRepository
	threadRepo  repository.WhatsAppThreadRepository
	msgRepo     repository.WhatsAppMessageRepository
	convService *ConversationThreadService
	window      *WindowPolicy
	transport   gateway.WhatsAppTransport
	resolver    contacts.Resolver
	events      EventPublisher
	logger      *logger.Logger
	now         func() time.Time
}

func NewWhatsAppRouter(
	channelRepo repository.ChannelRepository,
	threadRepo repository.WhatsAppThreadRepository,
	msgRepo repository.WhatsAppMessageRepository,
	convService *ConversationThreadService,
	window *WindowPolicy,
	transport gateway.WhatsAppTransport,
	resolver contacts.Resolver,
	events EventPublisher,
	l *logger.Logger,
) *WhatsAppRouter {
	if resolver == nil {
		resolver = contacts.NoopResolver{}
	}
	if events == nil {
		events = NoopEventPublisher{}
	}
	return &WhatsAppRouter{
		channelRepo: channelRepo,
		threadRepo:  threadRepo,
		msgRepo:     msgRepo,
		convService: convService,
		window:      window,
		transport:   transport,
		resolver:    resolver,
		events:      events,
		logger:      l,
		now:         time.Now,
	}
}

// SetClock overrides the router clock; tests only.
func (r *WhatsAppRouter) SetClock(now func() time.Time) {
	r.now = now
}

type InboundAttachment struct {
	URL        string
	MimeType   string
	Title      string
	StorageKey string
}

type InboundWhatsAppMessage struct {
	ChannelID         uuid.UUID
	FromPhone         string
	DisplayName       string
	ProviderMessageID string
	Type              domain.MessageType
	Body              string
	Attachments       []InboundAttachment
	ReceivedAt        time.Time
}

// HandleInbound resolves the owning thread (creating it on first
// contact), tags the message with the active conversation thread, and
// updates the unread/preview rollups.
func (r *WhatsAppRouter) HandleInbound(ctx context.Context, in InboundWhatsAppMessage) (message.WhatsAppMessage, error) {
	phone, err := normalizePhone(in.FromPhone)
	if err != nil {
		return message.WhatsAppMessage{}, err
	}

	ch, err := r.channelRepo.GetByID(ctx, in.ChannelID)
	if err != nil {
		return message.WhatsAppMessage{}, err
	}
	if ch.Type != domain.ChannelTypeWhatsApp {
		return message.WhatsAppMessage{}, fmt.Errorf("%w: channel %s is not a whatsapp channel", relay_errors.ErrValidation, ch.ID)
	}

	now := in.ReceivedAt
	if now.IsZero() {
		now = r.now()
	}

	t := thread.WhatsAppThread{
		ID:                uuid.New(),
		ChannelID:         ch.ID,
		TeamID:            ch.TeamID,
		RemotePhoneNumber: phone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if in.DisplayName != "" {
		t.RemoteDisplayName = sql.NullString{String: in.DisplayName, Valid: true}
	}
	if err := r.threadRepo.UpsertByPhone(ctx, &t); err != nil {
		return message.WhatsAppMessage{}, err
	}

	msg := message.WhatsAppMessage{
		ID:        uuid.New(),
		ThreadID:  t.ID,
		Direction: domain.DirectionInbound,
		Type:      messageTypeOrText(in.Type),
		Status:    domain.MessageStatusReceived,
		CreatedAt: now,
	}
	if in.Body != "" {
		msg.Body = sql.NullString{String: in.Body, Valid: true}
	}
	if in.ProviderMessageID != "" {
		msg.ProviderMessageID = sql.NullString{String: in.ProviderMessageID, Valid: true}
	}

	// The message belongs to whichever conversation thread is active
	// at the moment it is recorded; it keeps that id even after the
	// conversation thread is later closed.
	active, err := r.convService.FindActive(ctx, t.ID)
	if err != nil {
		return message.WhatsAppMessage{}, err
	}
	if active != nil {
		msg.ConversationThreadID = uuid.NullUUID{UUID: active.ID, Valid: true}
	}

	for _, a := range in.Attachments {
		msg.Attachments = append(msg.Attachments, newAttachment(msg.ID, "whatsapp", a, now))
	}

	if err := r.msgRepo.Create(ctx, &msg); err != nil {
		return message.WhatsAppMessage{}, err
	}
	if err := r.threadRepo.UpdateInboundRollup(ctx, t.ID, truncatePreview(in.Body), now); err != nil {
		return message.WhatsAppMessage{}, err
	}

	r.events.ThreadUpdated(ctx, ch.ID, t.ID)
	r.enrichContact(ctx, t, phone, in.DisplayName)

	return msg, nil
}

// enrichContact links the thread to a CRM contact, creating one when
// the number is unknown. Runs after the message is safely persisted;
// failures are logged and dropped.
func (r *WhatsAppRouter) enrichContact(ctx context.Context, t thread.WhatsAppThread, phone, displayName string) {
	if t.ContactID.Valid {
		return
	}
	ref, found, err := r.resolver.ResolveByPhone(ctx, phone)
	if err != nil {
		r.logger.ErrorfCtx(ctx, "contact lookup failed for %s: %v", phone, err)
		return
	}
	if !found {
		ref, err = r.resolver.CreateFromPhone(ctx, phone, displayName)
		if err != nil {
			r.logger.ErrorfCtx(ctx, "contact auto-create failed for %s: %v", phone, err)
			return
		}
	}
	if ref.ID == uuid.Nil {
		return
	}
	if err := r.threadRepo.SetContactRef(ctx, t.ID, ref.Type, ref.ID); err != nil {
		r.logger.ErrorfCtx(ctx, "contact link failed for thread %s: %v", t.ID, err)
	}
}

type SendWhatsAppInput struct {
	ThreadID       uuid.NullUUID
	ChannelID      uuid.UUID
	ToPhone        string
	Body           string
	TemplateName   string
	TemplateParams []string
	IdempotencyKey string
}

// Send validates the session-window rules and dispatches a
// user-composed message. Outside the window only template sends pass;
// transport failures leave the message persisted as FAILED and
// propagate to the caller.
func (r *WhatsAppRouter) Send(ctx context.Context, actor Actor, in SendWhatsAppInput) (message.WhatsAppMessage, error) {
	t, ch, err := r.resolveOutboundThread(ctx, actor, in)
	if err != nil {
		return message.WhatsAppMessage{}, err
	}
	if !ch.IsActive {
		return message.WhatsAppMessage{}, relay_errors.ErrChannelDisabled
	}

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		existing, err := r.msgRepo.GetByIdempotencyKey(ctx, t.ID, key)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, relay_errors.ErrNotFound) {
			return message.WhatsAppMessage{}, err
		}
	}

	in.TemplateName = strings.TrimSpace(in.TemplateName)
	windowOpen := r.window.IsOpen(t.LastInboundAt)
	if !windowOpen && in.TemplateName == "" {
		return message.WhatsAppMessage{}, fmt.Errorf("%w: free-form sends require an inbound message within the session window", relay_errors.ErrWindowClosed)
	}
	if windowOpen {
		// Window open: free-form body wins, template fields ignored.
		in.TemplateName = ""
		in.TemplateParams = nil
	}
	if in.TemplateName == "" && strings.TrimSpace(in.Body) == "" {
		return message.WhatsAppMessage{}, fmt.Errorf("%w: message body must not be empty", relay_errors.ErrValidation)
	}

	now := r.now()
	msg := message.WhatsAppMessage{
		ID:        uuid.New(),
		ThreadID:  t.ID,
		Direction: domain.DirectionOutbound,
		Type:      domain.MessageTypeText,
		Status:    domain.MessageStatusFailed,
		CreatedAt: now,
	}
	if in.TemplateName != "" {
		msg.Type = domain.MessageTypeTemplate
		msg.TemplateName = sql.NullString{String: in.TemplateName, Valid: true}
		if len(in.TemplateParams) > 0 {
			msg.TemplateParams = sql.NullString{String: strings.Join(in.TemplateParams, "\x1f"), Valid: true}
		}
	} else {
		msg.Body = sql.NullString{String: in.Body, Valid: true}
	}
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		msg.IdempotencyKey = sql.NullString{String: key, Valid: true}
	}

	// Outbound messages belong to the conversation thread active at the
	// moment they are recorded, same as inbound.
	active, err := r.convService.FindActive(ctx, t.ID)
	if err != nil {
		return message.WhatsAppMessage{}, err
	}
	if active != nil {
		msg.ConversationThreadID = uuid.NullUUID{UUID: active.ID, Valid: true}
	}

	result, sendErr := r.transport.Send(ctx, ch, gateway.WhatsAppSend{
		To:             t.RemotePhoneNumber,
		Body:           in.Body,
		TemplateName:   in.TemplateName,
		TemplateParams: in.TemplateParams,
	})
	if sendErr == nil {
		msg.Status = domain.MessageStatusSent
		msg.SentAt = sql.NullTime{Time: now, Valid: true}
		if result.ProviderMessageID != "" {
			msg.ProviderMessageID = sql.NullString{String: result.ProviderMessageID, Valid: true}
		}
	}

	if err := r.msgRepo.Create(ctx, &msg); err != nil {
		return message.WhatsAppMessage{}, err
	}

	if sendErr != nil {
		return msg, sendErr
	}

	if err := r.threadRepo.UpdateOutboundRollup(ctx, t.ID, now); err != nil {
		return message.WhatsAppMessage{}, err
	}

	r.events.ThreadUpdated(ctx, ch.ID, t.ID)

	if t.ContactID.Valid && t.ContactType.Valid {
		ref := contacts.Ref{Type: domain.ContactRefType(t.ContactType.String), ID: t.ContactID.UUID}
		if err := r.resolver.SetWhatsAppAvailability(ctx, ref, true); err != nil {
			r.logger.ErrorfCtx(ctx, "availability update failed for contact %s: %v", ref.ID, err)
		}
	}

	return msg, nil
}

func (r *WhatsAppRouter) resolveOutboundThread(ctx context.Context, actor Actor, in SendWhatsAppInput) (thread.WhatsAppThread, channel.Channel, error) {
	if in.ThreadID.Valid {
		t, err := r.threadRepo.GetByID(ctx, in.ThreadID.UUID)
		if err != nil {
			return thread.WhatsAppThread{}, channel.Channel{}, err
		}
		if t.TeamID != actor.TeamID {
			return thread.WhatsAppThread{}, channel.Channel{}, relay_errors.ErrNotFound
		}
		ch, err := r.channelRepo.GetByID(ctx, t.ChannelID)
		if err != nil {
			return thread.WhatsAppThread{}, channel.Channel{}, err
		}
		return t, ch, nil
	}

	// First-contact compose: create the thread from the target phone.
	phone, err := normalizePhone(in.ToPhone)
	if err != nil {
		return thread.WhatsAppThread{}, channel.Channel{}, err
	}
	ch, err := r.channelRepo.GetByID(ctx, in.ChannelID)
	if err != nil {
		return thread.WhatsAppThread{}, channel.Channel{}, err
	}
	if ch.Type != domain.ChannelTypeWhatsApp {
		return thread.WhatsAppThread{}, channel.Channel{}, fmt.Errorf("%w: channel %s is not a whatsapp channel", relay_errors.ErrValidation, ch.ID)
	}
	if ch.TeamID != actor.TeamID {
		return thread.WhatsAppThread{}, channel.Channel{}, relay_errors.ErrNotFound
	}

	now := r.now()
	t := thread.WhatsAppThread{
		ID:                uuid.New(),
		ChannelID:         ch.ID,
		TeamID:            ch.TeamID,
		RemotePhoneNumber: phone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := r.threadRepo.UpsertByPhone(ctx, &t); err != nil {
		return thread.WhatsAppThread{}, channel.Channel{}, err
	}
	return t, ch, nil
}

// HandleStatusUpdate applies a provider delivery receipt.
func (r *WhatsAppRouter) HandleStatusUpdate(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error {
	if at.IsZero() {
		at = r.now()
	}
	err := r.msgRepo.UpdateStatus(ctx, providerMessageID, status, at)
	if errors.Is(err, relay_errors.ErrNotFound) {
		// Receipts can arrive for messages sent outside this system.
		r.logger.InfofCtx(ctx, "ignoring receipt for unknown message %s", providerMessageID)
		return nil
	}
	return err
}

func messageTypeOrText(t domain.MessageType) domain.MessageType {
	if t == "" {
		return domain.MessageTypeText
	}
	return t
}

func newAttachment(messageID uuid.UUID, messageType string, a InboundAttachment, now time.Time) message.Attachment {
	att := message.Attachment{
		ID:          uuid.New(),
		MessageID:   messageID,
		MessageType: messageType,
		URL:         a.URL,
		CreatedAt:   now,
	}
	if a.MimeType != "" {
		att.MimeType = sql.NullString{String: a.MimeType, Valid: true}
	}
	if a.Title != "" {
		att.Title = sql.NullString{String: a.Title, Valid: true}
	}
	if a.StorageKey != "" {
		att.StorageKey = sql.NullString{String: a.StorageKey, Valid: true}
	}
	return att
}
