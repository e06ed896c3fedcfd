package services

import (
	"context"
	"fmt"
	"strings"

	"relaydesk/internal/domain"
	"relaydesk/internal/domain/channel"
	"relaydesk/internal/repository"
	relay_errors "relaydesk/pkg/errors"
	"relaydesk/pkg/logger"

	"github.com/google/uuid"
)

type ChannelService struct {
	repo   repository.ChannelRepository
	logger *logger.Logger
}

func NewChannelService(repo repository.ChannelRepository, l *logger.Logger) *ChannelService {
	return &ChannelService{repo: repo, logger: l}
}

type CreateChannelInput struct {
	Name             string
	Type             domain.ChannelType
	Provider         string
	SenderIdentifier string
	Visibility       domain.ChannelVisibility
}

func (s *ChannelService) Create(ctx context.Context, actor Actor, input CreateChannelInput) (channel.Channel, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.SenderIdentifier = strings.TrimSpace(input.SenderIdentifier)

	if input.Name == "" || input.SenderIdentifier == "" {
		return channel.Channel{}, fmt.Errorf("%w: name and sender identifier are required", relay_errors.ErrValidation)
	}
	if input.Type != domain.ChannelTypeEmail && input.Type != domain.ChannelTypeWhatsApp {
		return channel.Channel{}, fmt.Errorf("%w: unknown channel type %q", relay_errors.ErrValidation, input.Type)
	}
	if input.Visibility == "" {
		input.Visibility = domain.ChannelVisibilityTeam
	}
	if input.Visibility != domain.ChannelVisibilityPrivate && input.Visibility != domain.ChannelVisibilityTeam {
		return channel.Channel{}, fmt.Errorf("%w: unknown visibility %q", relay_errors.ErrValidation, input.Visibility)
	}

	ch := channel.Channel{
		ID:               uuid.New(),
		Name:             input.Name,
		Type:             input.Type,
		Provider:         input.Provider,
		SenderIdentifier: input.SenderIdentifier,
		Visibility:       input.Visibility,
		CreatedBy:        actor.UserID,
		TeamID:           actor.TeamID,
		IsActive:         true,
	}
	if err := s.repo.Create(ctx, &ch); err != nil {
		return channel.Channel{}, err
	}
	return ch, nil
}

// List returns the team's channels the actor may see.
func (s *ChannelService) List(ctx context.Context, actor Actor) ([]channel.Channel, error) {
	all, err := s.repo.ListByTeam(ctx, actor.TeamID)
	if err != nil {
		return nil, err
	}
	visible := make([]channel.Channel, 0, len(all))
	for _, ch := range all {
		if ch.VisibleTo(actor.UserID, actor.Role) {
			visible = append(visible, ch)
		}
	}
	return visible, nil
}

// GetAccessible fetches a channel and enforces team membership plus
// private-channel visibility.
func (s *ChannelService) GetAccessible(ctx context.Context, actor Actor, id uuid.UUID) (channel.Channel, error) {
	ch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return channel.Channel{}, err
	}
	if ch.TeamID != actor.TeamID {
		return channel.Channel{}, relay_errors.ErrNotFound
	}
	if !ch.VisibleTo(actor.UserID, actor.Role) {
		return channel.Channel{}, relay_errors.ErrAccessDenied
	}
	return ch, nil
}

// ResolveBySenderIdentifier looks a channel up by its provider-side
// identity (phone number id, inbound address). Used by webhook intake,
// which has no actor.
func (s *ChannelService) ResolveBySenderIdentifier(ctx context.Context, chType domain.ChannelType, senderIdentifier string) (channel.Channel, error) {
	return s.repo.GetBySenderIdentifier(ctx, chType, senderIdentifier)
}

// Disable soft-disables a channel. Channels are never deleted once
// messages reference them.
func (s *ChannelService) Disable(ctx context.Context, actor Actor, id uuid.UUID) error {
	ch, err := s.GetAccessible(ctx, actor, id)
	if err != nil {
		return err
	}
	if ch.CreatedBy != actor.UserID && !actor.IsAdmin() {
		return relay_errors.ErrAccessDenied
	}
	return s.repo.SetActive(ctx, ch.ID, false)
}
