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

// EmailRouter mirrors the WhatsApp router for the email channel.
// Reply threading is keyed by a token embedded in outbound mail; an
// inbound message without a matching token opens a new thread.
type EmailRouter struct {
	channelRepo repository.ChannelRepository
	threadRepo  repository.EmailThreadRepository
	msgRepo     repository.EmailMessageRepository
	transport   gateway.EmailTransport
	resolver    contacts.Resolver
	events      EventPublisher
	logger      *logger.Logger
	now         func() time.Time
}

func NewEmailRouter(
	channelRepo repository.ChannelRepository,
	threadRepo repository.EmailThreadRepository,
	msgRepo repository.EmailMessageRepository,
	transport gateway.EmailTransport,
	resolver contacts.Resolver,
	events EventPublisher,
	l *logger.Logger,
) *EmailRouter {
	if resolver == nil {
		resolver = contacts.NoopResolver{}
	}
	if events == nil {
		events = NoopEventPublisher{}
	}
	return &EmailRouter{
		channelRepo: channelRepo,
		threadRepo:  threadRepo,
		msgRepo:     msgRepo,
		transport:   transport,
		resolver:    resolver,
		events:      events,
		logger:      l,
		now:         time.Now,
	}
}

// SetClock overrides the router clock; tests only.
func (r *EmailRouter) SetClock(now func() time.Time) {
	r.now = now
}

type InboundEmailMessage struct {
	ChannelID         uuid.UUID
	Token             string
	FromName          string
	FromAddress       string
	ToAddress         string
	Subject           string
	Body              string
	ProviderMessageID string
	Attachments       []InboundAttachment
	ReceivedAt        time.Time
}

func (r *EmailRouter) HandleInbound(ctx context.Context, in InboundEmailMessage) (message.EmailMessage, error) {
	from, err := validateEmailAddress(in.FromAddress)
	if err != nil {
		return message.EmailMessage{}, err
	}

	ch, err := r.channelRepo.GetByID(ctx, in.ChannelID)
	if err != nil {
		return message.EmailMessage{}, err
	}
	if ch.Type != domain.ChannelTypeEmail {
		return message.EmailMessage{}, fmt.Errorf("%w: channel %s is not an email channel", relay_errors.ErrValidation, ch.ID)
	}

	now := in.ReceivedAt
	if now.IsZero() {
		now = r.now()
	}

	t, err := r.resolveInboundThread(ctx, ch, in, now)
	if err != nil {
		return message.EmailMessage{}, err
	}

	msg := message.EmailMessage{
		ID:          uuid.New(),
		ThreadID:    t.ID,
		Direction:   domain.DirectionInbound,
		FromAddress: from,
		ToAddress:   in.ToAddress,
		Subject:     in.Subject,
		Body:        in.Body,
		Status:      domain.MessageStatusReceived,
		CreatedAt:   now,
	}
	if in.FromName != "" {
		msg.FromName = sql.NullString{String: in.FromName, Valid: true}
	}
	if in.ProviderMessageID != "" {
		msg.ProviderMessageID = sql.NullString{String: in.ProviderMessageID, Valid: true}
	}
	for _, a := range in.Attachments {
		msg.Attachments = append(msg.Attachments, newAttachment(msg.ID, "email", a, now))
	}

	if err := r.msgRepo.Create(ctx, &msg); err != nil {
		return message.EmailMessage{}, err
	}
	if err := r.threadRepo.UpdateInboundRollup(ctx, t.ID, in.FromName, from, now); err != nil {
		return message.EmailMessage{}, err
	}

	r.events.ThreadUpdated(ctx, ch.ID, t.ID)
	r.enrichContact(ctx, t, from, in.FromName)

	return msg, nil
}

// resolveInboundThread matches the embedded reply token, falling back
// to a fresh thread when the token is absent or unknown.
func (r *EmailRouter) resolveInboundThread(ctx context.Context, ch channel.Channel, in InboundEmailMessage, now time.Time) (thread.EmailThread, error) {
	if token := strings.TrimSpace(in.Token); token != "" {
		t, err := r.threadRepo.GetByToken(ctx, ch.ID, token)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, relay_errors.ErrNotFound) {
			return thread.EmailThread{}, err
		}
	}

	t := thread.EmailThread{
		ID:        uuid.New(),
		ChannelID: ch.ID,
		TeamID:    ch.TeamID,
		Token:     uuid.NewString(),
		Subject:   in.Subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.threadRepo.Create(ctx, &t); err != nil {
		return thread.EmailThread{}, err
	}
	return t, nil
}

func (r *EmailRouter) enrichContact(ctx context.Context, t thread.EmailThread, address, displayName string) {
	if t.ContactID.Valid {
		return
	}
	ref, found, err := r.resolver.ResolveByEmail(ctx, address)
	if err != nil {
		r.logger.ErrorfCtx(ctx, "contact lookup failed for %s: %v", address, err)
		return
	}
	if !found {
		ref, err = r.resolver.CreateFromEmail(ctx, address, displayName)
		if err != nil {
			r.logger.ErrorfCtx(ctx, "contact auto-create failed for %s: %v", address, err)
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

type SendEmailInput struct {
	ThreadID       uuid.NullUUID
	ChannelID      uuid.UUID
	To             string
	Subject        string
	Body           string
	FromName       string
	IdempotencyKey string
}

// Send dispatches a user-composed email. Replies to an existing
// thread inherit the counterpart address and subject; a new thread
// requires both.
func (r *EmailRouter) Send(ctx context.Context, actor Actor, in SendEmailInput) (message.EmailMessage, error) {
	if strings.TrimSpace(in.Body) == "" {
		return message.EmailMessage{}, fmt.Errorf("%w: message body must not be empty", relay_errors.ErrValidation)
	}

	t, ch, err := r.resolveOutboundThread(ctx, actor, &in)
	if err != nil {
		return message.EmailMessage{}, err
	}
	if !ch.IsActive {
		return message.EmailMessage{}, relay_errors.ErrChannelDisabled
	}

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		existing, err := r.msgRepo.GetByIdempotencyKey(ctx, t.ID, key)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, relay_errors.ErrNotFound) {
			return message.EmailMessage{}, err
		}
	}

	now := r.now()
	msg := message.EmailMessage{
		ID:          uuid.New(),
		ThreadID:    t.ID,
		Direction:   domain.DirectionOutbound,
		FromAddress: ch.SenderIdentifier,
		ToAddress:   in.To,
		Subject:     in.Subject,
		Body:        in.Body,
		Status:      domain.MessageStatusFailed,
		CreatedAt:   now,
	}
	if in.FromName != "" {
		msg.FromName = sql.NullString{String: in.FromName, Valid: true}
	}
	if key := strings.TrimSpace(in.IdempotencyKey); key != "" {
		msg.IdempotencyKey = sql.NullString{String: key, Valid: true}
	}

	result, sendErr := r.transport.Send(ctx, ch, gateway.EmailSend{
		FromName:    in.FromName,
		FromAddress: ch.SenderIdentifier,
		ToAddress:   in.To,
		Subject:     in.Subject,
		Body:        in.Body,
		ThreadToken: t.Token,
	})
	if sendErr == nil {
		msg.Status = domain.MessageStatusSent
		msg.SentAt = sql.NullTime{Time: now, Valid: true}
		if result.ProviderMessageID != "" {
			msg.ProviderMessageID = sql.NullString{String: result.ProviderMessageID, Valid: true}
		}
	}

	if err := r.msgRepo.Create(ctx, &msg); err != nil {
		return message.EmailMessage{}, err
	}

	if sendErr != nil {
		return msg, sendErr
	}

	if err := r.threadRepo.UpdateOutboundRollup(ctx, t.ID, "", in.To, now); err != nil {
		return message.EmailMessage{}, err
	}

	r.events.ThreadUpdated(ctx, ch.ID, t.ID)

	return msg, nil
}

func (r *EmailRouter) resolveOutboundThread(ctx context.Context, actor Actor, in *SendEmailInput) (thread.EmailThread, channel.Channel, error) {
	if in.ThreadID.Valid {
		t, err := r.threadRepo.GetByID(ctx, in.ThreadID.UUID)
		if err != nil {
			return thread.EmailThread{}, channel.Channel{}, err
		}
		if t.TeamID != actor.TeamID {
			return thread.EmailThread{}, channel.Channel{}, relay_errors.ErrNotFound
		}
		ch, err := r.channelRepo.GetByID(ctx, t.ChannelID)
		if err != nil {
			return thread.EmailThread{}, channel.Channel{}, err
		}
		// Replies inherit the counterpart and subject from the thread;
		// an explicit recipient override is validated like any address.
		if strings.TrimSpace(in.To) == "" {
			if t.LastInboundAddress.Valid {
				in.To = t.LastInboundAddress.String
			} else if t.LastOutboundAddress.Valid {
				in.To = t.LastOutboundAddress.String
			}
		} else {
			to, err := validateEmailAddress(in.To)
			if err != nil {
				return thread.EmailThread{}, channel.Channel{}, err
			}
			in.To = to
		}
		if strings.TrimSpace(in.Subject) == "" {
			in.Subject = t.Subject
		}
		if strings.TrimSpace(in.To) == "" {
			return thread.EmailThread{}, channel.Channel{}, fmt.Errorf("%w: thread has no known counterpart address", relay_errors.ErrValidation)
		}
		return t, ch, nil
	}

	// New thread: recipient and subject are mandatory.
	to, err := validateEmailAddress(in.To)
	if err != nil {
		return thread.EmailThread{}, channel.Channel{}, err
	}
	in.To = to
	if strings.TrimSpace(in.Subject) == "" {
		return thread.EmailThread{}, channel.Channel{}, fmt.Errorf("%w: subject is required for a new thread", relay_errors.ErrValidation)
	}

	ch, err := r.channelRepo.GetByID(ctx, in.ChannelID)
	if err != nil {
		return thread.EmailThread{}, channel.Channel{}, err
	}
	if ch.Type != domain.ChannelTypeEmail {
		return thread.EmailThread{}, channel.Channel{}, fmt.Errorf("%w: channel %s is not an email channel", relay_errors.ErrValidation, ch.ID)
	}
	if ch.TeamID != actor.TeamID {
		return thread.EmailThread{}, channel.Channel{}, relay_errors.ErrNotFound
	}

	now := r.now()
	t := thread.EmailThread{
		ID:        uuid.New(),
		ChannelID: ch.ID,
		TeamID:    ch.TeamID,
		Token:     uuid.NewString(),
		Subject:   in.Subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.threadRepo.Create(ctx, &t); err != nil {
		return thread.EmailThread{}, channel.Channel{}, err
	}
	return t, ch, nil
}

// HandleStatusUpdate applies a provider delivery event.
func (r *EmailRouter) HandleStatusUpdate(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error {
	if at.IsZero() {
		at = r.now()
	}
	err := r.msgRepo.UpdateStatus(ctx, providerMessageID, status, at)
	if errors.Is(err, relay_errors.ErrNotFound) {
		r.logger.InfofCtx(ctx, "ignoring delivery event for unknown message %s", providerMessageID)
		return nil
	}
	return err
}
