package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"relaydesk/internal/config"
	"relaydesk/internal/domain"
	"relaydesk/internal/domain/channel"
	"relaydesk/internal/services"
	relay_errors "relaydesk/pkg/errors"
	"relaydesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Rejected webhook entries never reach the persistence layer, so only
// the channel lookup needs a real implementation here.
type stubChannelRepo struct {
	byIdentifier map[string]channel.Channel
}

func (r *stubChannelRepo) Create(ctx context.Context, c *channel.Channel) error { return nil }

func (r *stubChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (channel.Channel, error) {
	return channel.Channel{}, relay_errors.ErrNotFound
}

func (r *stubChannelRepo) GetBySenderIdentifier(ctx context.Context, chType domain.ChannelType, senderIdentifier string) (channel.Channel, error) {
	ch, ok := r.byIdentifier[senderIdentifier]
	if !ok {
		return channel.Channel{}, relay_errors.ErrNotFound
	}
	return ch, nil
}

func (r *stubChannelRepo) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]channel.Channel, error) {
	return nil, nil
}

func (r *stubChannelRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

func newWebhookHandler(t *testing.T) *WebhookHandler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l := logger.New(logger.DevelopmentMode)
	repo := &stubChannelRepo{byIdentifier: map[string]channel.Channel{
		"109238712": {
			ID:               uuid.New(),
			Type:             domain.ChannelTypeWhatsApp,
			SenderIdentifier: "109238712",
			IsActive:         true,
		},
	}}
	channels := services.NewChannelService(repo, l)
	conv := services.NewConversationThreadService(nil, nil, nil, l)
	router := services.NewWhatsAppRouter(repo, nil, nil, conv, services.NewWindowPolicy(0), nil, nil, nil, l)

	return NewWebhookHandler(channels, router, nil, &config.Config{}, l)
}

func postWhatsAppWebhook(h *WebhookHandler, payload string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/webhooks/whatsapp", strings.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	h.ReceiveWhatsApp(c)
	return w
}

func TestReceiveWhatsAppReportsRejectedEntries(t *testing.T) {
	h := newWebhookHandler(t)

	// One entry addressed to a phone number id no channel owns, one with
	// a resolvable channel but a malformed sender. The batch still acks
	// 200 so the provider does not replay it, but both drops are counted.
	payload := `{
		"object": "whatsapp_business_account",
		"entry": [
			{"id": "e1", "changes": [{"field": "messages", "value": {
				"metadata": {"phone_number_id": "no-such-number"},
				"messages": [{"id": "wamid.1", "from": "4915112345678", "type": "text", "text": {"body": "hi"}}]
			}}]},
			{"id": "e2", "changes": [{"field": "messages", "value": {
				"metadata": {"phone_number_id": "109238712"},
				"messages": [{"id": "wamid.2", "from": "not-a-number", "type": "text", "text": {"body": "hi"}}]
			}}]}
		]
	}`

	w := postWhatsAppWebhook(h, payload)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Accepted int `json:"accepted"`
			Rejected int `json:"rejected"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 0, resp.Data.Accepted)
	assert.Equal(t, 2, resp.Data.Rejected)
}
