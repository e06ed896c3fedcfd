package repository

import (
	"context"
	"errors"

	"relaydesk/internal/domain"
	"relaydesk/internal/domain/channel"
	relay_errors "relaydesk/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &PostgresChannelRepository{db: db}
}

func (r *PostgresChannelRepository) Create(ctx context.Context, c *channel.Channel) error {
	res := r.db.WithContext(ctx).Create(c)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresChannelRepository) GetByID(ctx context.Context, id uuid.UUID) (channel.Channel, error) {
	var c channel.Channel
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return channel.Channel{}, relay_errors.ErrNotFound
		}
		return channel.Channel{}, err
	}
	return c, nil
}

func (r *PostgresChannelRepository) GetBySenderIdentifier(ctx context.Context, chType domain.ChannelType, senderIdentifier string) (channel.Channel, error) {
	var c channel.Channel
	err := r.db.WithContext(ctx).
		Where("type = ? AND sender_identifier = ?", chType, senderIdentifier).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return channel.Channel{}, relay_errors.ErrNotFound
		}
		return channel.Channel{}, err
	}
	return c, nil
}

func (r *PostgresChannelRepository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]channel.Channel, error) {
	var channels []channel.Channel
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC").
		Find(&channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}

func (r *PostgresChannelRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	res := r.db.WithContext(ctx).
		Model(&channel.Channel{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}
