package services

import (
	"context"
	"testing"
	"time"

	"relaydesk/internal/domain"
	"relaydesk/internal/domain/channel"
	relay_errors "relaydesk/pkg/errors"
	"relaydesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emailFixture struct {
	router     *EmailRouter
	threadRepo *fakeEmailThreadRepo
	msgRepo    *fakeEmailMessageRepo
	transport  *fakeEmailTransport
	events     *recordingEvents
	channel    channel.Channel
	actor      Actor
	now        time.Time
}

func newEmailFixture(t *testing.T) *emailFixture {
	t.Helper()

	channelRepo := newFakeChannelRepo()
	threadRepo := newFakeEmailThreadRepo()
	msgRepo := newFakeEmailMessageRepo()
	transport := &fakeEmailTransport{}
	events := &recordingEvents{}
	l := logger.New(logger.DevelopmentMode)

	actor := Actor{UserID: uuid.New(), TeamID: uuid.New(), Role: domain.ActorRoleMember}
	ch := channel.Channel{
		ID:               uuid.New(),
		Name:             "Support Inbox",
		Type:             domain.ChannelTypeEmail,
		Provider:         "sendgrid",
		SenderIdentifier: "support@acme.example",
		Visibility:       domain.ChannelVisibilityTeam,
		CreatedBy:        actor.UserID,
		TeamID:           actor.TeamID,
		IsActive:         true,
	}
	require.NoError(t, channelRepo.Create(context.Background(), &ch))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	router := NewEmailRouter(channelRepo, threadRepo, msgRepo, transport, nil, events, l)
	router.SetClock(func() time.Time { return now })

	return &emailFixture{
		router:     router,
		threadRepo: threadRepo,
		msgRepo:    msgRepo,
		transport:  transport,
		events:     events,
		channel:    ch,
		actor:      actor,
		now:        now,
	}
}

func TestInboundEmailWithoutTokenOpensThread(t *testing.T) {
	f := newEmailFixture(t)

	msg, err := f.router.HandleInbound(context.Background(), InboundEmailMessage{
		ChannelID:   f.channel.ID,
		FromName:    "Ada",
		FromAddress: "ada@example.com",
		ToAddress:   "support@acme.example",
		Subject:     "Broken widget",
		Body:        "It fell apart.",
	})
	require.NoError(t, err)

	wt, err := f.threadRepo.GetByID(context.Background(), msg.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, "Broken widget", wt.Subject)
	assert.NotEmpty(t, wt.Token)
	assert.Equal(t, "ada@example.com", wt.LastInboundAddress.String)
	assert.Equal(t, 1, f.events.count())
}

func TestInboundEmailWithTokenJoinsExistingThread(t *testing.T) {
	f := newEmailFixture(t)
	ctx := context.Background()

	first, err := f.router.HandleInbound(ctx, InboundEmailMessage{
		ChannelID:   f.channel.ID,
		FromAddress: "ada@example.com",
		Subject:     "Broken widget",
		Body:        "It fell apart.",
	})
	require.NoError(t, err)

	wt, err := f.threadRepo.GetByID(ctx, first.ThreadID)
	require.NoError(t, err)

	reply, err := f.router.HandleInbound(ctx, InboundEmailMessage{
		ChannelID:   f.channel.ID,
		Token:       wt.Token,
		FromAddress: "ada@example.com",
		Subject:     "Re: Broken widget",
		Body:        "Any update?",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, reply.ThreadID)
}

func TestInboundEmailWithUnknownTokenOpensFreshThread(t *testing.T) {
	f := newEmailFixture(t)

	msg, err := f.router.HandleInbound(context.Background(), InboundEmailMessage{
		ChannelID:   f.channel.ID,
		Token:       "stale-token",
		FromAddress: "ada@example.com",
		Subject:     "Hello again",
		Body:        "New topic.",
	})
	require.NoError(t, err)

	wt, err := f.threadRepo.GetByID(context.Background(), msg.ThreadID)
	require.NoError(t, err)
	assert.NotEqual(t, "stale-token", wt.Token)
}

func TestInboundEmailRejectsMalformedAddress(t *testing.T) {
	f := newEmailFixture(t)

	_, err := f.router.HandleInbound(context.Background(), InboundEmailMessage{
		ChannelID:   f.channel.ID,
		FromAddress: "not an address",
		Body:        "hi",
	})
	assert.ErrorIs(t, err, relay_errors.ErrValidation)
}

func TestSendEmailNewThreadRequiresRecipientAndSubject(t *testing.T) {
	f := newEmailFixture(t)
	ctx := context.Background()

	_, err := f.router.Send(ctx, f.actor, SendEmailInput{
		ChannelID: f.channel.ID,
		Subject:   "No recipient",
		Body:      "hello",
	})
	assert.ErrorIs(t, err, relay_errors.ErrValidation)

	_, err = f.router.Send(ctx, f.actor, SendEmailInput{
		ChannelID: f.channel.ID,
		To:        "ada@example.com",
		Body:      "hello",
	})
	assert.ErrorIs(t, err, relay_errors.ErrValidation)
}

func TestSendEmailNewThread(t *testing.T) {
	f := newEmailFixture(t)

	msg, err := f.router.Send(context.Background(), f.actor, SendEmailInput{
		ChannelID: f.channel.ID,
		To:        "ada@example.com",
		Subject:   "Welcome aboard",
		Body:      "Glad to have you.",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MessageStatusSent, msg.Status)
	assert.Equal(t, "support@acme.example", msg.FromAddress)

	sends := f.transport.sent()
	require.Len(t, sends, 1)
	assert.Equal(t, "ada@example.com", sends[0].ToAddress)
	assert.NotEmpty(t, sends[0].ThreadToken)
}

func TestSendEmailReplyInheritsCounterpartAndSubject(t *testing.T) {
	f := newEmailFixture(t)
	ctx := context.Background()

	inbound, err := f.router.HandleInbound(ctx, InboundEmailMessage{
		ChannelID:   f.channel.ID,
		FromAddress: "ada@example.com",
		Subject:     "Broken widget",
		Body:        "It fell apart.",
	})
	require.NoError(t, err)

	reply, err := f.router.Send(ctx, f.actor, SendEmailInput{
		ThreadID: uuid.NullUUID{UUID: inbound.ThreadID, Valid: true},
		Body:     "A replacement is on the way.",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", reply.ToAddress)
	assert.Equal(t, "Broken widget", reply.Subject)
}

func TestSendEmailReplyFallsBackToLastOutboundAddress(t *testing.T) {
	f := newEmailFixture(t)
	ctx := context.Background()

	first, err := f.router.Send(ctx, f.actor, SendEmailInput{
		ChannelID: f.channel.ID,
		To:        "ada@example.com",
		Subject:   "Initial",
		Body:      "hello",
	})
	require.NoError(t, err)

	reply, err := f.router.Send(ctx, f.actor, SendEmailInput{
		ThreadID: uuid.NullUUID{UUID: first.ThreadID, Valid: true},
		Body:     "following up",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", reply.ToAddress)
}

func TestSendEmailReplyValidatesRecipientOverride(t *testing.T) {
	f := newEmailFixture(t)
	ctx := context.Background()

	inbound, err := f.router.HandleInbound(ctx, InboundEmailMessage{
		ChannelID:   f.channel.ID,
		FromAddress: "ada@example.com",
		Subject:     "Broken widget",
		Body:        "It fell apart.",
	})
	require.NoError(t, err)

	_, err = f.router.Send(ctx, f.actor, SendEmailInput{
		ThreadID: uuid.NullUUID{UUID: inbound.ThreadID, Valid: true},
		To:       "not-an-address",
		Body:     "rerouting this",
	})
	assert.ErrorIs(t, err, relay_errors.ErrValidation)
	assert.Empty(t, f.transport.sent())

	// A well-formed override wins over the inherited counterpart.
	reply, err := f.router.Send(ctx, f.actor, SendEmailInput{
		ThreadID: uuid.NullUUID{UUID: inbound.ThreadID, Valid: true},
		To:       "  billing@example.com ",
		Body:     "rerouting this",
	})
	require.NoError(t, err)
	assert.Equal(t, "billing@example.com", reply.ToAddress)
}

func TestSendEmailReplyWithoutCounterpart(t *testing.T) {
	f := newEmailFixture(t)
	ctx := context.Background()

	// A failed first send never records an outbound rollup, so the
	// thread ends up with no counterpart address on either side.
	f.transport.err = relay_errors.ErrTransport
	first, err := f.router.Send(ctx, f.actor, SendEmailInput{
		ChannelID: f.channel.ID,
		To:        "ada@example.com",
		Subject:   "Initial",
		Body:      "hello",
	})
	require.ErrorIs(t, err, relay_errors.ErrTransport)
	f.transport.err = nil

	_, err = f.router.Send(ctx, f.actor, SendEmailInput{
		ThreadID: uuid.NullUUID{UUID: first.ThreadID, Valid: true},
		Body:     "following up",
	})
	assert.ErrorIs(t, err, relay_errors.ErrValidation)
}

func TestSendEmailBodyRequired(t *testing.T) {
	f := newEmailFixture(t)

	_, err := f.router.Send(context.Background(), f.actor, SendEmailInput{
		ChannelID: f.channel.ID,
		To:        "ada@example.com",
		Subject:   "Empty",
		Body:      "   ",
	})
	assert.ErrorIs(t, err, relay_errors.ErrValidation)
}

func TestSendEmailTransportFailurePersistsFailedMessage(t *testing.T) {
	f := newEmailFixture(t)
	f.transport.err = relay_errors.ErrTransport

	msg, err := f.router.Send(context.Background(), f.actor, SendEmailInput{
		ChannelID: f.channel.ID,
		To:        "ada@example.com",
		Subject:   "Doomed",
		Body:      "hello",
	})
	assert.ErrorIs(t, err, relay_errors.ErrTransport)

	stored, getErr := f.msgRepo.GetByID(context.Background(), msg.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.MessageStatusFailed, stored.Status)
}

func TestSendEmailIdempotencyKeyReturnsOriginal(t *testing.T) {
	f := newEmailFixture(t)
	ctx := context.Background()

	in := SendEmailInput{
		ChannelID:      f.channel.ID,
		To:             "ada@example.com",
		Subject:        "Once",
		Body:           "hello",
		IdempotencyKey: "req-42",
	}

	first, err := f.router.Send(ctx, f.actor, in)
	require.NoError(t, err)

	in.ThreadID = uuid.NullUUID{UUID: first.ThreadID, Valid: true}
	second, err := f.router.Send(ctx, f.actor, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.transport.sent(), 1)
}

func TestEmailDeliveryEventApplies(t *testing.T) {
	f := newEmailFixture(t)
	ctx := context.Background()

	msg, err := f.router.Send(ctx, f.actor, SendEmailInput{
		ChannelID: f.channel.ID,
		To:        "ada@example.com",
		Subject:   "Track",
		Body:      "hello",
	})
	require.NoError(t, err)

	at := f.now.Add(time.Minute)
	require.NoError(t, f.router.HandleStatusUpdate(ctx, msg.ProviderMessageID.String, domain.MessageStatusDelivered, at))

	stored, err := f.msgRepo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusDelivered, stored.Status)
}
