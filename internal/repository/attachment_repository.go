package repository

import (
	"context"
	"errors"

	"relaydesk/internal/domain/message"
	relay_errors "relaydesk/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresAttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &PostgresAttachmentRepository{db: db}
}

func (r *PostgresAttachmentRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Attachment, error) {
	var a message.Attachment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Attachment{}, relay_errors.ErrNotFound
		}
		return message.Attachment{}, err
	}
	return a, nil
}

func (r *PostgresAttachmentRepository) GetForTeam(ctx context.Context, id, teamID uuid.UUID) (message.Attachment, error) {
	var a message.Attachment
	err := r.db.WithContext(ctx).
		Raw(`SELECT a.* FROM attachments a
			WHERE a.id = ? AND (
				(a.message_type = 'whatsapp' AND EXISTS (
					SELECT 1 FROM whatsapp_messages m
					JOIN whatsapp_threads t ON t.id = m.thread_id
					WHERE m.id = a.message_id AND t.team_id = ?))
				OR
				(a.message_type = 'email' AND EXISTS (
					SELECT 1 FROM email_messages m
					JOIN email_threads t ON t.id = m.thread_id
					WHERE m.id = a.message_id AND t.team_id = ?))
			)`, id, teamID, teamID).
		Scan(&a).Error
	if err != nil {
		return message.Attachment{}, err
	}
	if a.ID == uuid.Nil {
		return message.Attachment{}, relay_errors.ErrNotFound
	}
	return a, nil
}
