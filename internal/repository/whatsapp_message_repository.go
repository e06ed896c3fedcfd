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

type PostgresWhatsAppMessageRepository struct {
	db *gorm.DB
}

func NewWhatsAppMessageRepository(db *gorm.DB) WhatsAppMessageRepository {
	return &PostgresWhatsAppMessageRepository{db: db}
}

func (r *PostgresWhatsAppMessageRepository) Create(ctx context.Context, m *message.WhatsAppMessage) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresWhatsAppMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.WhatsAppMessage, error) {
	var m message.WhatsAppMessage
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("id = ?", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.WhatsAppMessage{}, relay_errors.ErrNotFound
		}
		return message.WhatsAppMessage{}, err
	}
	return m, nil
}

func (r *PostgresWhatsAppMessageRepository) GetByIdempotencyKey(ctx context.Context, threadID uuid.UUID, key string) (message.WhatsAppMessage, error) {
	var m message.WhatsAppMessage
	err := r.db.WithContext(ctx).
		Where("thread_id = ? AND idempotency_key = ?", threadID, key).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.WhatsAppMessage{}, relay_errors.ErrNotFound
		}
		return message.WhatsAppMessage{}, err
	}
	return m, nil
}

func (r *PostgresWhatsAppMessageRepository) ListByThread(ctx context.Context, threadID uuid.UUID, page, limit int) ([]message.WhatsAppMessage, int64, error) {
	var messages []message.WhatsAppMessage
	var total int64

	q := r.db.WithContext(ctx).
		Model(&message.WhatsAppMessage{}).
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

func (r *PostgresWhatsAppMessageRepository) ListByConversationThread(ctx context.Context, conversationThreadID uuid.UUID, page, limit int) ([]message.WhatsAppMessage, int64, error) {
	var messages []message.WhatsAppMessage
	var total int64

	q := r.db.WithContext(ctx).
		Model(&message.WhatsAppMessage{}).
		Where("conversation_thread_id = ?", conversationThreadID)

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

func (r *PostgresWhatsAppMessageRepository) CountByThread(ctx context.Context, threadID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&message.WhatsAppMessage{}).
		Where("thread_id = ?", threadID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresWhatsAppMessageRepository) UpdateStatus(ctx context.Context, providerMessageID string, status domain.MessageStatus, at time.Time) error {
	updates := map[string]interface{}{"status": status}
	switch status {
	case domain.MessageStatusDelivered:
		updates["delivered_at"] = at
	case domain.MessageStatusRead:
		updates["read_at"] = at
	}

	res := r.db.WithContext(ctx).
		Model(&message.WhatsAppMessage{}).
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

func (r *PostgresWhatsAppMessageRepository) Search(ctx context.Context, filter MessageSearchFilter) ([]message.WhatsAppMessage, error) {
	var messages []message.WhatsAppMessage

	threadSub := r.db.Model(&thread.WhatsAppThread{}).
		Select("id").
		Where("team_id = ?", filter.TeamID)
	if filter.ChannelID.Valid {
		threadSub = threadSub.Where("channel_id = ?", filter.ChannelID.UUID)
	}

	q := r.db.WithContext(ctx).
		Where("thread_id IN (?)", threadSub)

	if filter.Query != "" {
		q = q.Where("body ILIKE ?", "%"+filter.Query+"%")
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

func (r *PostgresWhatsAppMessageRepository) DeleteByThread(ctx context.Context, threadID uuid.UUID) error {
	msgSub := r.db.Model(&message.WhatsAppMessage{}).
		Select("id").
		Where("thread_id = ?", threadID)
	if err := r.db.WithContext(ctx).
		Delete(&message.Attachment{}, "message_type = 'whatsapp' AND message_id IN (?)", msgSub).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Delete(&message.WhatsAppMessage{}, "thread_id = ?", threadID).Error
}
