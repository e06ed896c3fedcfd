package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"relaydesk/internal/domain/thread"
	"relaydesk/internal/repository"
	relay_errors "relaydesk/pkg/errors"
	"relaydesk/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationThreadService owns the pseudo-thread lifecycle of a
// WhatsApp thread: at most one open conversation thread per thread,
// opening a new one closes the previous in the same transaction.
type ConversationThreadService struct {
	db         *gorm.DB
	threadRepo repository.WhatsAppThreadRepository
	convRepo   repository.ConversationThreadRepository
	logger     *logger.Logger
	now        func() time.Time

	locks [threadLockShards]sync.Mutex
}

const threadLockShards = 64

func NewConversationThreadService(db *gorm.DB, threadRepo repository.WhatsAppThreadRepository, convRepo repository.ConversationThreadRepository, l *logger.Logger) *ConversationThreadService {
	return &ConversationThreadService{
		db:         db,
		threadRepo: threadRepo,
		convRepo:   convRepo,
		logger:     l,
		now:        time.Now,
	}
}

// SetClock overrides the service clock; tests only.
func (s *ConversationThreadService) SetClock(now func() time.Time) {
	s.now = now
}

// StartNewResult carries the newly opened thread and, when one
// existed, the thread it displaced.
type StartNewResult struct {
	Started        thread.ConversationThread
	ClosedPrevious *thread.ConversationThread
}

// threadLock returns the in-process mutex shard for a WhatsApp thread.
// The database row lock serializes across instances; this serializes
// within one. The pool is fixed-size, so memory stays flat no matter
// how many threads a team accumulates; a shard collision only means
// two unrelated activations queue briefly.
func (s *ConversationThreadService) threadLock(id uuid.UUID) *sync.Mutex {
	return &s.locks[int(id[0])%threadLockShards]
}

// StartNew atomically closes any active conversation thread for the
// WhatsApp thread and opens a new one with the given label.
func (s *ConversationThreadService) StartNew(ctx context.Context, actor Actor, whatsappThreadID uuid.UUID, label string) (StartNewResult, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return StartNewResult{}, fmt.Errorf("%w: label must not be empty", relay_errors.ErrValidation)
	}

	lock := s.threadLock(whatsappThreadID)
	lock.Lock()
	defer lock.Unlock()

	if s.db == nil {
		return s.startNewDirect(ctx, actor, whatsappThreadID, label, s.threadRepo, s.convRepo)
	}

	var result StartNewResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.startNewDirect(ctx, actor, whatsappThreadID, label,
			repository.NewWhatsAppThreadRepository(tx),
			repository.NewConversationThreadRepository(tx))
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if errors.Is(err, relay_errors.ErrConflict) {
		// Lost an activation race against another instance; the
		// retry observes the winner's row under the lock and
		// supersedes it cleanly.
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res, retryErr := s.startNewDirect(ctx, actor, whatsappThreadID, label,
				repository.NewWhatsAppThreadRepository(tx),
				repository.NewConversationThreadRepository(tx))
			if retryErr != nil {
				return retryErr
			}
			result = res
			return nil
		})
	}
	if err != nil {
		return StartNewResult{}, err
	}
	return result, nil
}

func (s *ConversationThreadService) startNewDirect(ctx context.Context, actor Actor, whatsappThreadID uuid.UUID, label string, threadRepo repository.WhatsAppThreadRepository, convRepo repository.ConversationThreadRepository) (StartNewResult, error) {
	t, err := threadRepo.LockForUpdate(ctx, whatsappThreadID)
	if err != nil {
		return StartNewResult{}, err
	}
	if t.TeamID != actor.TeamID {
		return StartNewResult{}, relay_errors.ErrNotFound
	}

	now := s.now()
	var closed *thread.ConversationThread

	prev, err := convRepo.FindActive(ctx, whatsappThreadID)
	if err == nil {
		if err := convRepo.Close(ctx, prev.ID, now); err != nil {
			return StartNewResult{}, err
		}
		prev.EndedAt.Time = now
		prev.EndedAt.Valid = true
		closed = &prev
	} else if !errors.Is(err, relay_errors.ErrNotFound) {
		return StartNewResult{}, err
	}

	started := thread.ConversationThread{
		ID:               uuid.New(),
		UUID:             uuid.New(),
		WhatsAppThreadID: whatsappThreadID,
		TeamID:           t.TeamID,
		Label:            label,
		StartedAt:        now,
		CreatedBy:        actor.UserID,
		CreatedAt:        now,
	}
	if err := convRepo.Create(ctx, &started); err != nil {
		return StartNewResult{}, err
	}

	return StartNewResult{Started: started, ClosedPrevious: closed}, nil
}

// FindActive returns the open conversation thread, or nil when the
// thread's history is unsegmented.
func (s *ConversationThreadService) FindActive(ctx context.Context, whatsappThreadID uuid.UUID) (*thread.ConversationThread, error) {
	t, err := s.convRepo.FindActive(ctx, whatsappThreadID)
	if err != nil {
		if errors.Is(err, relay_errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (s *ConversationThreadService) List(ctx context.Context, actor Actor, whatsappThreadID uuid.UUID) ([]thread.ConversationThread, error) {
	t, err := s.threadRepo.GetByID(ctx, whatsappThreadID)
	if err != nil {
		return nil, err
	}
	if t.TeamID != actor.TeamID {
		return nil, relay_errors.ErrNotFound
	}
	return s.convRepo.ListByThread(ctx, whatsappThreadID)
}
