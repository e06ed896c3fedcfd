package services

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"relaydesk/internal/domain"
	"relaydesk/internal/domain/channel"
	"relaydesk/internal/domain/message"
	"relaydesk/internal/domain/thread"
	"relaydesk/internal/gateway"
	"relaydesk/internal/repository"
	relay_errors "relaydesk/pkg/errors"

	"github.com/google/uuid"
)

// In-memory repositories backing service tests. They mirror the
// Postgres implementations' contracts, including the unique
// constraints the services lean on.

type fakeChannelRepo struct {
	mu       sync.Mutex
	channels map[uuid.UUID]channel.Channel
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{channels: make(map[uuid.UUID]channel.Channel)}
}

func (r *fakeChannelRepo) Create(ctx context.Context, c *channel.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[c.ID] = *c
	return nil
}

func (r *fakeChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (channel.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[id]
	if !ok {
		return channel.Channel{}, relay_errors.ErrNotFound
	}
	return c, nil
}

func (r *fakeChannelRepo) GetBySenderIdentifier(ctx context.Context, chType domain.ChannelType, senderIdentifier string) (channel.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.channels {
		if c.Type == chType && c.SenderIdentifier == senderIdentifier {
			return c, nil
		}
	}
	return channel.Channel{}, relay_errors.ErrNotFound
}

func (r *fakeChannelRepo) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]channel.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []channel.Channel
	for _, c := range r.channels {
		if c.TeamID == teamID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeChannelRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.channels[id]
	if !ok {
		return relay_errors.ErrNotFound
	}
	c.IsActive = active
	r.channels[id] = c
	return nil
}

type fakeWhatsAppThreadRepo struct {
	mu      sync.Mutex
	threads map[uuid.UUID]thread.WhatsAppThread
}

func newFakeWhatsAppThreadRepo() *fakeWhatsAppThreadRepo {
	return &fakeWhatsAppThreadRepo{threads: make(map[uuid.UUID]thread.WhatsAppThread)}
}

func (r *fakeWhatsAppThreadRepo) Create(ctx context.Context, t *thread.WhatsAppThread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.threads {
		if existing.ChannelID == t.ChannelID && existing.RemotePhoneNumber == t.RemotePhoneNumber {
			return relay_errors.ErrAlreadyExists
		}
	}
	r.threads[t.ID] = *t
	return nil
}

func (r *fakeWhatsAppThreadRepo) GetByID(ctx context.Context, id uuid.UUID) (thread.WhatsAppThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return thread.WhatsAppThread{}, relay_errors.ErrNotFound
	}
	return t, nil
}

func (r *fakeWhatsAppThreadRepo) GetByPhone(ctx context.Context, channelID uuid.UUID, phone string) (thread.WhatsAppThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.threads {
		if t.ChannelID == channelID && t.RemotePhoneNumber == phone {
			return t, nil
		}
	}
	return thread.WhatsAppThread{}, relay_errors.ErrNotFound
}

func (r *fakeWhatsAppThreadRepo) UpsertByPhone(ctx context.Context, t *thread.WhatsAppThread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.threads {
		if existing.ChannelID == t.ChannelID && existing.RemotePhoneNumber == t.RemotePhoneNumber {
			*t = existing
			return nil
		}
	}
	r.threads[t.ID] = *t
	return nil
}

func (r *fakeWhatsAppThreadRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, page, limit int) ([]thread.WhatsAppThread, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []thread.WhatsAppThread
	for _, t := range r.threads {
		if t.ChannelID == channelID {
			out = append(out, t)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeWhatsAppThreadRepo) UpdateInboundRollup(ctx context.Context, id uuid.UUID, preview string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return relay_errors.ErrNotFound
	}
	t.IsUnread = true
	t.LastMessagePreview = sql.NullString{String: preview, Valid: preview != ""}
	t.LastInboundAt = sql.NullTime{Time: at, Valid: true}
	t.UpdatedAt = at
	r.threads[id] = t
	return nil
}

func (r *fakeWhatsAppThreadRepo) UpdateOutboundRollup(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return relay_errors.ErrNotFound
	}
	t.LastOutboundAt = sql.NullTime{Time: at, Valid: true}
	t.UpdatedAt = at
	r.threads[id] = t
	return nil
}

func (r *fakeWhatsAppThreadRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return relay_errors.ErrNotFound
	}
	t.IsUnread = false
	r.threads[id] = t
	return nil
}

func (r *fakeWhatsAppThreadRepo) SetContactRef(ctx context.Context, id uuid.UUID, refType domain.ContactRefType, refID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return relay_errors.ErrNotFound
	}
	t.ContactType = sql.NullString{String: string(refType), Valid: true}
	t.ContactID = uuid.NullUUID{UUID: refID, Valid: true}
	r.threads[id] = t
	return nil
}

func (r *fakeWhatsAppThreadRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (thread.WhatsAppThread, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeWhatsAppThreadRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.threads[id]; !ok {
		return relay_errors.ErrNotFound
	}
	delete(r.threads, id)
	return nil
}

type fakeConversationThreadRepo struct {
	mu      sync.Mutex
	threads map[uuid.UUID]thread.ConversationThread
}

func newFakeConversationThreadRepo() *fakeConversationThreadRepo {
	return &fakeConversationThreadRepo{threads: make(map[uuid.UUID]thread.ConversationThread)}
}

func (r *fakeConversationThreadRepo) Create(ctx context.Context, t *thread.ConversationThread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.threads {
		if existing.WhatsAppThreadID == t.WhatsAppThreadID && !existing.EndedAt.Valid && !t.EndedAt.Valid {
			return relay_errors.ErrConflict
		}
	}
	r.threads[t.ID] = *t
	return nil
}

func (r *fakeConversationThreadRepo) GetByID(ctx context.Context, id uuid.UUID) (thread.ConversationThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return thread.ConversationThread{}, relay_errors.ErrNotFound
	}
	return t, nil
}

func (r *fakeConversationThreadRepo) FindActive(ctx context.Context, whatsappThreadID uuid.UUID) (thread.ConversationThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.threads {
		if t.WhatsAppThreadID == whatsappThreadID && !t.EndedAt.Valid {
			return t, nil
		}
	}
	return thread.ConversationThread{}, relay_errors.ErrNotFound
}

func (r *fakeConversationThreadRepo) Close(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok || t.EndedAt.Valid {
		return relay_errors.ErrNotFound
	}
	t.EndedAt = sql.NullTime{Time: at, Valid: true}
	r.threads[id] = t
	return nil
}

func (r *fakeConversationThreadRepo) ListByThread(ctx context.Context, whatsappThreadID uuid.UUID) ([]thread.ConversationThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []thread.ConversationThread
	for _, t := range r.threads {
		if t.WhatsAppThreadID == whatsappThreadID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeConversationThreadRepo) CountByThread(ctx context.Context, whatsappThreadID uuid.UUID) (int64, error) {
	list, _ := r.ListByThread(ctx, whatsappThreadID)
	return int64(len(list)), nil
}

func (r *fakeConversationThreadRepo) DeleteByThread(ctx context.Context, whatsappThreadID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.threads {
		if t.WhatsAppThreadID == whatsappThreadID {
			delete(r.threads, id)
		}
	}
	return nil
}

type fakeWhatsAppMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]message.WhatsAppMessage
}

func newFakeWhatsAppMessageRepo() *fakeWhatsAppMessageRepo {
	return &fakeWhatsAppMessageRepo{messages: make(map[uuid.UUID]message.WhatsAppMessage)}
}

func (r *fakeWhatsAppMessageRepo) Create(ctx context.Context, m *message.WhatsAppMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.IdempotencyKey.Valid {
		for _, existing := range r.messages {
			if existing.ThreadID == m.ThreadID && existing.IdempotencyKey.Valid && existing.IdempotencyKey.String == m.IdempotencyKey.String {
				return relay_errors.ErrAlreadyExists
			}
		}
	}
	r.messages[m.ID] = *m
	return nil
}

func (r *fakeWhatsAppMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (message.WhatsAppMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return message.WhatsAppMessage{}, relay_errors.ErrNotFound
	}
	return m, nil
}

func (r *fakeWhatsAppMessageRepo) GetByIdempotencyKey(ctx context.Context, threadID uuid.UUID, key string) (message.WhatsAppMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ThreadID == threadID && m.IdempotencyKey.Valid && m.IdempotencyKey.String == key {
			return m, nil
		}
	}
	return message.WhatsAppMessage{}, relay_errors.ErrNotFound
}

func (r *fakeWhatsAppMessageRepo) ListByThread(ctx context.Context, threadID uuid.UUID, page, limit int) ([]message.WhatsAppMessage, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.WhatsAppMessage
	for _, m := range r.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeWhatsAppMessageRepo) ListByConversationThread(ctx context.Context, conversationThreadID uuid.UUID, page, limit int) ([]message.WhatsAppMessage, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.WhatsAppMessage
	for _, m := range r.messages {
		if m.ConversationThreadID.Valid && m.ConversationThreadID.UUID == conversationThreadID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeWhatsAppMessageRepo) CountByThread(ctx context.Context, threadID uuid.UUID) (int64, error) {
	_, total, _ := r.ListByThread(ctx, threadID, 1, 0)
	return total, nil
}

func (r *fakeWhatsAppMessageRepo) UpdateStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.messages {
		if m.ProviderMessageID.Valid && m.ProviderMessageID.String == providerMessageID {
			m.Status = status
			switch status {
			case domain.MessageStatusDelivered:
				m.DeliveredAt = sql.NullTime{Time: at, Valid: true}
			case domain.MessageStatusRead:
				m.ReadAt = sql.NullTime{Time: at, Valid: true}
			}
			r.messages[id] = m
			return nil
		}
	}
	return relay_errors.ErrNotFound
}

func (r *fakeWhatsAppMessageRepo) Search(ctx context.Context, filter repository.MessageSearchFilter) ([]message.WhatsAppMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.WhatsAppMessage
	for _, m := range r.messages {
		if filter.Query != "" {
			if !m.Body.Valid || !strings.Contains(strings.ToLower(m.Body.String), strings.ToLower(filter.Query)) {
				continue
			}
		}
		if filter.Direction != "" && m.Direction != filter.Direction {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeWhatsAppMessageRepo) DeleteByThread(ctx context.Context, threadID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.messages {
		if m.ThreadID == threadID {
			delete(r.messages, id)
		}
	}
	return nil
}

type fakeEmailThreadRepo struct {
	mu      sync.Mutex
	threads map[uuid.UUID]thread.EmailThread
}

func newFakeEmailThreadRepo() *fakeEmailThreadRepo {
	return &fakeEmailThreadRepo{threads: make(map[uuid.UUID]thread.EmailThread)}
}

func (r *fakeEmailThreadRepo) Create(ctx context.Context, t *thread.EmailThread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[t.ID] = *t
	return nil
}

func (r *fakeEmailThreadRepo) GetByID(ctx context.Context, id uuid.UUID) (thread.EmailThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return thread.EmailThread{}, relay_errors.ErrNotFound
	}
	return t, nil
}

func (r *fakeEmailThreadRepo) GetByToken(ctx context.Context, channelID uuid.UUID, token string) (thread.EmailThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.threads {
		if t.ChannelID == channelID && t.Token == token {
			return t, nil
		}
	}
	return thread.EmailThread{}, relay_errors.ErrNotFound
}

func (r *fakeEmailThreadRepo) ListByChannel(ctx context.Context, channelID uuid.UUID, page, limit int) ([]thread.EmailThread, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []thread.EmailThread
	for _, t := range r.threads {
		if t.ChannelID == channelID {
			out = append(out, t)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeEmailThreadRepo) UpdateInboundRollup(ctx context.Context, id uuid.UUID, fromName, fromAddress string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return relay_errors.ErrNotFound
	}
	t.LastInboundFrom = sql.NullString{String: fromName, Valid: fromName != ""}
	t.LastInboundAddress = sql.NullString{String: fromAddress, Valid: true}
	t.LastInboundAt = sql.NullTime{Time: at, Valid: true}
	t.UpdatedAt = at
	r.threads[id] = t
	return nil
}

func (r *fakeEmailThreadRepo) UpdateOutboundRollup(ctx context.Context, id uuid.UUID, toName, toAddress string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return relay_errors.ErrNotFound
	}
	t.LastOutboundTo = sql.NullString{String: toName, Valid: toName != ""}
	t.LastOutboundAddress = sql.NullString{String: toAddress, Valid: true}
	t.LastOutboundAt = sql.NullTime{Time: at, Valid: true}
	t.UpdatedAt = at
	r.threads[id] = t
	return nil
}

func (r *fakeEmailThreadRepo) SetContactRef(ctx context.Context, id uuid.UUID, refType domain.ContactRefType, refID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[id]
	if !ok {
		return relay_errors.ErrNotFound
	}
	t.ContactType = sql.NullString{String: string(refType), Valid: true}
	t.ContactID = uuid.NullUUID{UUID: refID, Valid: true}
	r.threads[id] = t
	return nil
}

func (r *fakeEmailThreadRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, id)
	return nil
}

type fakeEmailMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]message.EmailMessage
}

func newFakeEmailMessageRepo() *fakeEmailMessageRepo {
	return &fakeEmailMessageRepo{messages: make(map[uuid.UUID]message.EmailMessage)}
}

func (r *fakeEmailMessageRepo) Create(ctx context.Context, m *message.EmailMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.ID] = *m
	return nil
}

func (r *fakeEmailMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (message.EmailMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return message.EmailMessage{}, relay_errors.ErrNotFound
	}
	return m, nil
}

func (r *fakeEmailMessageRepo) GetByIdempotencyKey(ctx context.Context, threadID uuid.UUID, key string) (message.EmailMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ThreadID == threadID && m.IdempotencyKey.Valid && m.IdempotencyKey.String == key {
			return m, nil
		}
	}
	return message.EmailMessage{}, relay_errors.ErrNotFound
}

func (r *fakeEmailMessageRepo) ListByThread(ctx context.Context, threadID uuid.UUID, page, limit int) ([]message.EmailMessage, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.EmailMessage
	for _, m := range r.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeEmailMessageRepo) UpdateStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.messages {
		if m.ProviderMessageID.Valid && m.ProviderMessageID.String == providerMessageID {
			m.Status = status
			if status == domain.MessageStatusDelivered {
				m.DeliveredAt = sql.NullTime{Time: at, Valid: true}
			}
			r.messages[id] = m
			return nil
		}
	}
	return relay_errors.ErrNotFound
}

func (r *fakeEmailMessageRepo) Search(ctx context.Context, filter repository.MessageSearchFilter) ([]message.EmailMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.EmailMessage
	for _, m := range r.messages {
		if filter.Query != "" {
			haystack := strings.ToLower(m.Body + " " + m.Subject)
			if !strings.Contains(haystack, strings.ToLower(filter.Query)) {
				continue
			}
		}
		if filter.Direction != "" && m.Direction != filter.Direction {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *fakeEmailMessageRepo) DeleteByThread(ctx context.Context, threadID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.messages {
		if m.ThreadID == threadID {
			delete(r.messages, id)
		}
	}
	return nil
}

// fakeWhatsAppTransport records what it was asked to send and can be
// told to fail.
type fakeWhatsAppTransport struct {
	mu    sync.Mutex
	sends []gateway.WhatsAppSend
	err   error
}

func (t *fakeWhatsAppTransport) Send(ctx context.Context, ch channel.Channel, send gateway.WhatsAppSend) (gateway.SendResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return gateway.SendResult{}, t.err
	}
	t.sends = append(t.sends, send)
	return gateway.SendResult{ProviderMessageID: "wamid." + uuid.NewString()}, nil
}

func (t *fakeWhatsAppTransport) sent() []gateway.WhatsAppSend {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]gateway.WhatsAppSend(nil), t.sends...)
}

type fakeEmailTransport struct {
	mu    sync.Mutex
	sends []gateway.EmailSend
	err   error
}

func (t *fakeEmailTransport) Send(ctx context.Context, ch channel.Channel, send gateway.EmailSend) (gateway.SendResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return gateway.SendResult{}, t.err
	}
	t.sends = append(t.sends, send)
	return gateway.SendResult{ProviderMessageID: uuid.NewString()}, nil
}

func (t *fakeEmailTransport) sent() []gateway.EmailSend {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]gateway.EmailSend(nil), t.sends...)
}

// recordingEvents collects thread-updated notifications.
type recordingEvents struct {
	mu      sync.Mutex
	threads []uuid.UUID
}

func (e *recordingEvents) ThreadUpdated(ctx context.Context, channelID, threadID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.threads = append(e.threads, threadID)
}

func (e *recordingEvents) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.threads)
}
