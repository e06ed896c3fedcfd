package repository

import (
	"context"
	"errors"
	"time"

	"relaydesk/internal/domain"
	"relaydesk/internal/domain/message"
	"relaydesk/internal/domain/thread"
	relay_errors "relaydesk/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresEmailMessageRepository struct {
	db *gorm.DB
}

func NewEmailMessageRepository(db *gorm.DB) EmailMessageRepository {
	return &PostgresEmailMessageRepository{db: db}
}

func (r *PostgresEmailMessageRepository) Create(ctx context.Context, m *message.EmailMessage) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresEmailMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.EmailMessage, error) {
	var m message.EmailMessage
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.EmailMessage{}, relay_errors.ErrNotFound
		}
		return message.EmailMessage{}, err
	}
	return m, nil
}

func (r *PostgresEmailMessageRepository) GetByIdempotencyKey(ctx context.Context, threadID uuid.UUID, key string) (message.EmailMessage, error) {
	var m message.EmailMessage
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND idempotency_key = ?", threadID, key).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.EmailMessage{}, relay_errors.ErrNotFound
		}
		return message.EmailMessage{}, err
	}
	return m, nil
}

func (r *PostgresEmailMessageRepository) ListByThread(ctx context.Context, threadID uuid.UUID, page, limit int) ([]message.EmailMessage, int64, error) {
	var messages []message.EmailMessage
	var total int64

	q := r.db.WithContext(ctx).
		Model(&message.EmailMessage{}).
		Where("thread_id = ?", threadID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.
		Preload("Attachments").
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (r *PostgresEmailMessageRepository) UpdateStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error {
	updates := map[string]interface{}{"status": status}
	if status == domain.MessageStatusDelivered {
		updates["delivered_at"] = at
	}

	res := r.db.WithContext(ctx).
		Model(&message.EmailMessage{}).
		Where("provider_message_id = ?", providerMessageID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresEmailMessageRepository) Search(ctx context.Context, filter MessageSearchFilter) ([]message.EmailMessage, error) {
	var messages []message.EmailMessage

	threadSub := r.db.Model(&thread.EmailThread{}).
		Select("id").
		Where("team_id = ?", filter.TeamID)
	if filter.ChannelID.Valid {
		threadSub = threadSub.Where("channel_id = ?", filter.ChannelID.UUID)
	}

	q := r.db.WithContext(ctx).
		Where("thread_id IN (?)", threadSub)

	if filter.Query != "" {
		q = q.Where("(body ILIKE ? OR subject ILIKE ?)", "%"+filter.Query+"%", "%"+filter.Query+"%")
	}
	if filter.Direction != "" {
		q = q.Where("direction = ?", filter.Direction)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	err := q.
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *PostgresEmailMessageRepository) DeleteByThread(ctx context.Context, threadID uuid.UUID) error {
	msgSub := r.db.Model(&message.EmailMessage{}).
		Select("id").
		Where("thread_id = ?", threadID)
	if err := r.db.WithContext(ctx).
		Delete(&message.Attachment{}, "message_type = 'email' AND message_id IN (?)", msgSub).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Delete(&message.EmailMessage{}, "thread_id = ?", threadID).Error
}
