package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"relaydesk/internal/domain/thread"
	relay_errors "relaydesk/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresConversationThreadRepository struct {
	db *gorm.DB
}

func NewConversationThreadRepository(db *gorm.DB) ConversationThreadRepository {
	return &PostgresConversationThreadRepository{db: db}
}

func (r *PostgresConversationThreadRepository) Create(ctx context.Context, t *thread.ConversationThread) error {
	res := r.db.WithContext(ctx).Create(t)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			// Partial unique index on (whatsapp_thread_id) WHERE ended_at
			// IS NULL: a second active row lost the race.
			return relay_errors.ErrConflict
		}
		return res.Error
	}
	return nil
}

func (r *PostgresConversationThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (thread.ConversationThread, error) {
	var t thread.ConversationThread
	err := r.db.WithContext(ctx).
		Where("id = ? OR uuid = ?", id, id).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.ConversationThread{}, relay_errors.ErrNotFound
		}
		return thread.ConversationThread{}, err
	}
	return t, nil
}

func (r *PostgresConversationThreadRepository) FindActive(ctx context.Context, whatsappThreadID uuid.UUID) (thread.ConversationThread, error) {
	var t thread.ConversationThread
	err := r.db.WithContext(ctx).
		Where("whatsapp_thread_id = ? AND ended_at IS NULL", whatsappThreadID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.ConversationThread{}, relay_errors.ErrNotFound
		}
		return thread.ConversationThread{}, err
	}
	return t, nil
}

func (r *PostgresConversationThreadRepository) Close(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&thread.ConversationThread{}).
		Where("id = ? AND ended_at IS NULL", id).
		Update("ended_at", sql.NullTime{Time: at, Valid: true})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationThreadRepository) ListByThread(ctx context.Context, whatsappThreadID uuid.UUID) ([]thread.ConversationThread, error) {
	var threads []thread.ConversationThread
	err := r.db.WithContext(ctx).
		Where("whatsapp_thread_id = ?", whatsappThreadID).
		Order("started_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *PostgresConversationThreadRepository) CountByThread(ctx context.Context, whatsappThreadID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&thread.ConversationThread{}).
		Where("whatsapp_thread_id = ?", whatsappThreadID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresConversationThreadRepository) DeleteByThread(ctx context.Context, whatsappThreadID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&thread.ConversationThread{}, "whatsapp_thread_id = ?", whatsappThreadID).Error
}
