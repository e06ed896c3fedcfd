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

type PostgresEmailThreadRepository struct {
	db *gorm.DB
}

func NewEmailThreadRepository(db *gorm.DB) EmailThreadRepository {
	return &PostgresEmailThreadRepository{db: db}
}

func (r *PostgresEmailThreadRepository) Create(ctx context.Context, t *thread.EmailThread) error {
	// Token collisions from concurrent webhook deliveries fold onto the
	// existing row, mirroring the WhatsApp phone-number upsert.
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}, {Name: "token"}},
			DoNothing: true,
		}).
		Create(t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetByToken(ctx, t.ChannelID, t.Token)
		if err != nil {
			return err
		}
		*t = existing
	}
	return nil
}

func (r *PostgresEmailThreadRepository) GetByID(ctx context.Context, id uuid.UUID) (thread.EmailThread, error) {
	var t thread.EmailThread
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.EmailThread{}, relay_errors.ErrNotFound
		}
		return thread.EmailThread{}, err
	}
	return t, nil
}

func (r *PostgresEmailThreadRepository) GetByToken(ctx context.Context, channelID uuid.UUID, token string) (thread.EmailThread, error) {
	var t thread.EmailThread
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND token = ?", channelID, token).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return thread.EmailThread{}, relay_errors.ErrNotFound
		}
		return thread.EmailThread{}, err
	}
	return t, nil
}

func (r *PostgresEmailThreadRepository) ListByChannel(ctx context.Context, channelID uuid.UUID, page, limit int) ([]thread.EmailThread, int64, error) {
	var threads []thread.EmailThread
	var total int64

	q := r.db.WithContext(ctx).
		Model(&thread.EmailThread{}).
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

func (r *PostgresEmailThreadRepository) UpdateInboundRollup(ctx context.Context, id uuid.UUID, fromName, fromAddress string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&thread.EmailThread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_inbound_from":    sql.NullString{String: fromName, Valid: fromName != ""},
			"last_inbound_address": fromAddress,
			"last_inbound_at":      at,
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

func (r *PostgresEmailThreadRepository) UpdateOutboundRollup(ctx context.Context, id uuid.UUID, toName, toAddress string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&thread.EmailThread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_outbound_to":      sql.NullString{String: toName, Valid: toName != ""},
			"last_outbound_address": toAddress,
			"last_outbound_at":      at,
			"updated_at":            at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresEmailThreadRepository) SetContactRef(ctx context.Context, id uuid.UUID, refType domain.ContactRefType, refID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&thread.EmailThread{}).
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

func (r *PostgresEmailThreadRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&thread.EmailThread{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}
