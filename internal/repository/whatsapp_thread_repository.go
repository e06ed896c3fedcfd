package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"relaydesk/internal/domain"
	"relaydesk/internal/domain/thread"
	relay_errors "relaydesk/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresWhatsAppThreadRepository struct {
	db *gorm.DB
}

func NewWhatsAppThreadRepository(db *gorm.DB) WhatsAppThreadRepository {
	return &PostgresWhatsAppThreadRepository{db: db}
}

func (r *PostgresWhatsAppThreadRepository) Create(ctx context.Context, t *thread.WhatsAppThread) error {
	res := r.db.WithContext(ctx).Create(t)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresWhatsAppThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (thread.WhatsAppThread, error) {
	var t thread.WhatsAppThread
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.WhatsAppThread{}, relay_errors.ErrNotFound
		}
		return thread.WhatsAppThread{}, err
	}
	return t, nil
}

func (r *PostgresWhatsAppThreadRepository) GetByPhone(ctx context.Context, channelID uuid.UUID, phone string) (thread.WhatsAppThread, error) {
	var t thread.WhatsAppThread
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND remote_phone_number = ?", channelID, phone).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.WhatsAppThread{}, relay_errors.ErrNotFound
		}
		return thread.WhatsAppThread{}, err
	}
	return t, nil
}

func (r *PostgresWhatsAppThreadRepository) UpsertByPhone(ctx context.Context, t *thread.WhatsAppThread) error {
	// ON CONFLICT DO NOTHING, then re-read: two near-simultaneous
	// first-contact webhooks must end up on the same row.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}, {Name: "remote_phone_number"}},
			DoNothing: true,
		}).
		Create(t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetByPhone(ctx, t.ChannelID, t.RemotePhoneNumber)
		if err != nil {
			return err
		}
		*t = existing
	}
	return nil
}

func (r *PostgresWhatsAppThreadRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, page, limit int) ([]thread.WhatsAppThread, int64, error) {
	var threads []thread.WhatsAppThread
	var total int64

	q := r.db.WithContext(ctx).
		Model(&thread.WhatsAppThread{}).
		Where("channel_id = ?", channelID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.
		Order("GREATEST(COALESCE(last_inbound_at, 'epoch'), COALESCE(last_outbound_at, 'epoch')) DESC").
		Offset(offset).
		Limit(limit).
		Find(&threads).Error; err != nil {
		return nil, 0, err
	}

	return threads, total, nil
}

func (r *PostgresWhatsAppThreadRepository) UpdateInboundRollup(ctx context.Context, id uuid.UUID, preview string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&thread.WhatsAppThread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_inbound_at":      at,
			"last_message_preview": preview,
			"is_unread":            true,
			"updated_at":           at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresWhatsAppThreadRepository) UpdateOutboundRollup(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&thread.WhatsAppThread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_outbound_at": at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresWhatsAppThreadRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	// Idempotent: a thread that is already read stays read.
	res := r.db.WithContext(ctx).
		Model(&thread.WhatsAppThread{}).
		Where("id = ?", id).
		Update("is_unread", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresWhatsAppThreadRepository) SetContactRef(ctx context.Context, id uuid.UUID, refType domain.ContactRefType, refID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&thread.WhatsAppThread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"contact_type": sql.NullString{String: string(refType), Valid: true},
			"contact_id":   uuid.NullUUID{UUID: refID, Valid: true},
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresWhatsAppThreadRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (thread.WhatsAppThread, error) {
	var t thread.WhatsAppThread
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.WhatsAppThread{}, relay_errors.ErrNotFound
		}
		return thread.WhatsAppThread{}, err
	}
	return t, nil
}

func (r *PostgresWhatsAppThreadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&thread.WhatsAppThread{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}
