package services

import (
	"context"
	"testing"

	"relaydesk/internal/domain"
	relay_errors "relaydesk/pkg/errors"
	"relaydesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChannelService() (*ChannelService, *fakeChannelRepo) {
	repo := newFakeChannelRepo()
	return NewChannelService(repo, logger.New(logger.DevelopmentMode)), repo
}

func TestCreateChannelValidation(t *testing.T) {
	svc, _ := newChannelService()
	actor := Actor{UserID: uuid.New(), TeamID: uuid.New(), Role: domain.ActorRoleMember}
	ctx := context.Background()

	_, err := svc.Create(ctx, actor, CreateChannelInput{Type: domain.ChannelTypeEmail, SenderIdentifier: "x@y.z"})
	assert.ErrorIs(t, err, relay_errors.ErrValidation)

	_, err = svc.Create(ctx, actor, CreateChannelInput{Name: "Inbox", Type: "sms", SenderIdentifier: "100"})
	assert.ErrorIs(t, err, relay_errors.ErrValidation)

	_, err = svc.Create(ctx, actor, CreateChannelInput{
		Name:             "Inbox",
		Type:             domain.ChannelTypeEmail,
		SenderIdentifier: "x@y.z",
		Visibility:       "hidden",
	})
	assert.ErrorIs(t, err, relay_errors.ErrValidation)

	ch, err := svc.Create(ctx, actor, CreateChannelInput{
		Name:             "  Inbox  ",
		Type:             domain.ChannelTypeEmail,
		Provider:         "sendgrid",
		SenderIdentifier: "x@y.z",
	})
	require.NoError(t, err)
	assert.Equal(t, "Inbox", ch.Name)
	assert.Equal(t, domain.ChannelVisibilityTeam, ch.Visibility)
	assert.Equal(t, actor.TeamID, ch.TeamID)
	assert.True(t, ch.IsActive)
}

func TestListChannelsHidesForeignPrivate(t *testing.T) {
	svc, _ := newChannelService()
	ctx := context.Background()

	owner := Actor{UserID: uuid.New(), TeamID: uuid.New(), Role: domain.ActorRoleMember}
	teammate := Actor{UserID: uuid.New(), TeamID: owner.TeamID, Role: domain.ActorRoleMember}
	admin := Actor{UserID: uuid.New(), TeamID: owner.TeamID, Role: domain.ActorRoleAdmin}

	_, err := svc.Create(ctx, owner, CreateChannelInput{
		Name:             "Shared",
		Type:             domain.ChannelTypeWhatsApp,
		SenderIdentifier: "1065432100001",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner, CreateChannelInput{
		Name:             "Mine",
		Type:             domain.ChannelTypeWhatsApp,
		SenderIdentifier: "1065432100002",
		Visibility:       domain.ChannelVisibilityPrivate,
	})
	require.NoError(t, err)

	visible, err := svc.List(ctx, teammate)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	visible, err = svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	visible, err = svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, visible, 2)
}

func TestDisableChannelPermissions(t *testing.T) {
	svc, repo := newChannelService()
	ctx := context.Background()

	owner := Actor{UserID: uuid.New(), TeamID: uuid.New(), Role: domain.ActorRoleMember}
	teammate := Actor{UserID: uuid.New(), TeamID: owner.TeamID, Role: domain.ActorRoleMember}
	admin := Actor{UserID: uuid.New(), TeamID: owner.TeamID, Role: domain.ActorRoleAdmin}

	ch, err := svc.Create(ctx, owner, CreateChannelInput{
		Name:             "Shared",
		Type:             domain.ChannelTypeWhatsApp,
		SenderIdentifier: "1065432100001",
	})
	require.NoError(t, err)

	err = svc.Disable(ctx, teammate, ch.ID)
	assert.ErrorIs(t, err, relay_errors.ErrAccessDenied)

	require.NoError(t, svc.Disable(ctx, admin, ch.ID))

	stored, err := repo.GetByID(ctx, ch.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestGetAccessibleForeignTeam(t *testing.T) {
	svc, _ := newChannelService()
	ctx := context.Background()

	owner := Actor{UserID: uuid.New(), TeamID: uuid.New(), Role: domain.ActorRoleMember}
	ch, err := svc.Create(ctx, owner, CreateChannelInput{
		Name:             "Shared",
		Type:             domain.ChannelTypeWhatsApp,
		SenderIdentifier: "1065432100001",
	})
	require.NoError(t, err)

	stranger := Actor{UserID: uuid.New(), TeamID: uuid.New(), Role: domain.ActorRoleAdmin}
	_, err = svc.GetAccessible(ctx, stranger, ch.ID)
	assert.ErrorIs(t, err, relay_errors.ErrNotFound)
}
