package services

import (
	"context"
	"time"

	"relaydesk/internal/domain"
	"relaydesk/internal/domain/message"
	"relaydesk/internal/domain/thread"
	"relaydesk/internal/repository"
	relay_errors "relaydesk/pkg/errors"
	"relaydesk/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ThreadService serves thread listings and timelines, owns the
// read/unread bookkeeping, and handles explicit thread deletion.
type ThreadService struct {
	db              *gorm.DB
	channels        *ChannelService
	waThreadRepo    repository.WhatsAppThreadRepository
	emailThreadRepo repository.EmailThreadRepository
	convRepo        repository.ConversationThreadRepository
	waMsgRepo       repository.WhatsAppMessageRepository
	emailMsgRepo    repository.EmailMessageRepository
	window          *WindowPolicy
	logger          *logger.Logger
}

func NewThreadService(
	db *gorm.DB,
	channels *ChannelService,
	waThreadRepo repository.WhatsAppThreadRepository,
	emailThreadRepo repository.EmailThreadRepository,
	convRepo repository.ConversationThreadRepository,
	waMsgRepo repository.WhatsAppMessageRepository,
	emailMsgRepo repository.EmailMessageRepository,
	window *WindowPolicy,
	l *logger.Logger,
) *ThreadService {
	return &ThreadService{
		db:              db,
		channels:        channels,
		waThreadRepo:    waThreadRepo,
		emailThreadRepo: emailThreadRepo,
		convRepo:        convRepo,
		waMsgRepo:       waMsgRepo,
		emailMsgRepo:    emailMsgRepo,
		window:          window,
		logger:          l,
	}
}

func (s *ThreadService) ListWhatsAppThreads(ctx context.Context, actor Actor, channelID uuid.UUID, page, limit int) ([]thread.WhatsAppThread, int64, error) {
	if _, err := s.channels.GetAccessible(ctx, actor, channelID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return s.waThreadRepo.ListByChannel(ctx, channelID, page, limit)
}

func (s *ThreadService) ListEmailThreads(ctx context.Context, actor Actor, channelID uuid.UUID, page, limit int) ([]thread.EmailThread, int64, error) {
	if _, err := s.channels.GetAccessible(ctx, actor, channelID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return s.emailThreadRepo.ListByChannel(ctx, channelID, page, limit)
}

// WhatsAppTimeline is a thread plus its message page and the computed
// session-window state.
type WhatsAppTimeline struct {
	Thread          thread.WhatsAppThread
	Messages        []message.WhatsAppMessage
	Total           int64
	WindowOpen      bool
	WindowExpiresAt *time.Time
}

// ShowWhatsAppThread returns the timeline and clears the unread flag;
// viewing is what marks a thread read.
func (s *ThreadService) ShowWhatsAppThread(ctx context.Context, actor Actor, threadID uuid.UUID, page, limit int) (WhatsAppTimeline, error) {
	t, err := s.getAccessibleWhatsAppThread(ctx, actor, threadID)
	if err != nil {
		return WhatsAppTimeline{}, err
	}
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}

	messages, total, err := s.waMsgRepo.ListByThread(ctx, threadID, page, limit)
	if err != nil {
		return WhatsAppTimeline{}, err
	}

	if err := s.MarkRead(ctx, actor, threadID); err != nil {
		return WhatsAppTimeline{}, err
	}
	t.IsUnread = false

	return WhatsAppTimeline{
		Thread:          t,
		Messages:        messages,
		Total:           total,
		WindowOpen:      s.window.IsOpen(t.LastInboundAt),
		WindowExpiresAt: s.window.ExpiresAt(t.LastInboundAt),
	}, nil
}

// MarkRead clears the unread flag. Safe to call on an already-read
// thread.
func (s *ThreadService) MarkRead(ctx context.Context, actor Actor, threadID uuid.UUID) error {
	t, err := s.waThreadRepo.GetByID(ctx, threadID)
	if err != nil {
		return err
	}
	if t.TeamID != actor.TeamID {
		return relay_errors.ErrNotFound
	}
	return s.waThreadRepo.MarkRead(ctx, threadID)
}

func (s *ThreadService) GetEmailThread(ctx context.Context, actor Actor, threadID uuid.UUID) (thread.EmailThread, error) {
	t, err := s.emailThreadRepo.GetByID(ctx, threadID)
	if err != nil {
		return thread.EmailThread{}, err
	}
	if t.TeamID != actor.TeamID {
		return thread.EmailThread{}, relay_errors.ErrNotFound
	}
	if _, err := s.channels.GetAccessible(ctx, actor, t.ChannelID); err != nil {
		return thread.EmailThread{}, err
	}
	return t, nil
}

func (s *ThreadService) ListEmailMessages(ctx context.Context, actor Actor, threadID uuid.UUID, page, limit int) ([]message.EmailMessage, int64, error) {
	if _, err := s.GetEmailThread(ctx, actor, threadID); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return s.emailMsgRepo.ListByThread(ctx, threadID, page, limit)
}

func (s *ThreadService) ListConversationThreadMessages(ctx context.Context, actor Actor, conversationThreadID uuid.UUID, page, limit int) ([]message.WhatsAppMessage, int64, error) {
	ct, err := s.convRepo.GetByID(ctx, conversationThreadID)
	if err != nil {
		return nil, 0, err
	}
	if ct.TeamID != actor.TeamID {
		return nil, 0, relay_errors.ErrNotFound
	}
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return s.waMsgRepo.ListByConversationThread(ctx, ct.ID, page, limit)
}

// DeletionPreview reports what a thread delete would cascade to, so
// the caller can confirm with real numbers.
type DeletionPreview struct {
	MessageCount            int64
	ConversationThreadCount int64
}

func (s *ThreadService) PreviewWhatsAppThreadDeletion(ctx context.Context, actor Actor, threadID uuid.UUID) (DeletionPreview, error) {
	if _, err := s.getAccessibleWhatsAppThread(ctx, actor, threadID); err != nil {
		return DeletionPreview{}, err
	}
	msgCount, err := s.waMsgRepo.CountByThread(ctx, threadID)
	if err != nil {
		return DeletionPreview{}, err
	}
	convCount, err := s.convRepo.CountByThread(ctx, threadID)
	if err != nil {
		return DeletionPreview{}, err
	}
	return DeletionPreview{MessageCount: msgCount, ConversationThreadCount: convCount}, nil
}

// DeleteWhatsAppThread removes the thread with its messages and
// conversation threads in one transaction.
func (s *ThreadService) DeleteWhatsAppThread(ctx context.Context, actor Actor, threadID uuid.UUID) error {
	if _, err := s.getAccessibleWhatsAppThread(ctx, actor, threadID); err != nil {
		return err
	}

	if s.db == nil {
		return s.deleteWhatsAppThreadDirect(ctx, threadID, s.waMsgRepo, s.convRepo, s.waThreadRepo)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.deleteWhatsAppThreadDirect(ctx, threadID,
			repository.NewWhatsAppMessageRepository(tx),
			repository.NewConversationThreadRepository(tx),
			repository.NewWhatsAppThreadRepository(tx))
	})
}

func (s *ThreadService) deleteWhatsAppThreadDirect(ctx context.Context, threadID uuid.UUID, msgRepo repository.WhatsAppMessageRepository, convRepo repository.ConversationThreadRepository, threadRepo repository.WhatsAppThreadRepository) error {
	if err := msgRepo.DeleteByThread(ctx, threadID); err != nil {
		return err
	}
	if err := convRepo.DeleteByThread(ctx, threadID); err != nil {
		return err
	}
	return threadRepo.Delete(ctx, threadID)
}

// SearchResults carries matches from both channel families.
type SearchResults struct {
	WhatsApp []message.WhatsAppMessage
	Email    []message.EmailMessage
}

type SearchInput struct {
	Query     string
	ChannelID uuid.NullUUID
	Direction domain.Direction
	From      *time.Time
	To        *time.Time
	Limit     int
}

func (s *ThreadService) SearchMessages(ctx context.Context, actor Actor, in SearchInput) (SearchResults, error) {
	if in.ChannelID.Valid {
		if _, err := s.channels.GetAccessible(ctx, actor, in.ChannelID.UUID); err != nil {
			return SearchResults{}, err
		}
	}

	filter := repository.MessageSearchFilter{
		TeamID:    actor.TeamID,
		ChannelID: in.ChannelID,
		Query:     in.Query,
		Direction: in.Direction,
		From:      in.From,
		To:        in.To,
		Limit:     in.Limit,
	}

	wa, err := s.waMsgRepo.Search(ctx, filter)
	if err != nil {
		return SearchResults{}, err
	}
	em, err := s.emailMsgRepo.Search(ctx, filter)
	if err != nil {
		return SearchResults{}, err
	}
	return SearchResults{WhatsApp: wa, Email: em}, nil
}

func (s *ThreadService) getAccessibleWhatsAppThread(ctx context.Context, actor Actor, threadID uuid.UUID) (thread.WhatsAppThread, error) {
	t, err := s.waThreadRepo.GetByID(ctx, threadID)
	if err != nil {
		return thread.WhatsAppThread{}, err
	}
	if t.TeamID != actor.TeamID {
		return thread.WhatsAppThread{}, relay_errors.ErrNotFound
	}
	if _, err := s.channels.GetAccessible(ctx, actor, t.ChannelID); err != nil {
		return thread.WhatsAppThread{}, err
	}
	return t, nil
}
