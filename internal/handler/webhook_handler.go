package handler

import (
	"net/http"
	"strconv"
	"time"

	"relaydesk/internal/config"
	"relaydesk/internal/domain"
	"relaydesk/internal/services"
	"relaydesk/internal/transport/httpdto"
	"relaydesk/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WebhookHandler terminates provider callbacks. These routes carry no
// actor; access is gated by provider-level tokens instead.
type WebhookHandler struct {
	channels *services.ChannelService
	whatsapp *services.WhatsAppRouter
	email    *services.EmailRouter
	cfg      *config.Config
	logger   *logger.Logger
}

func NewWebhookHandler(channels *services.ChannelService, whatsapp *services.WhatsAppRouter, email *services.EmailRouter, cfg *config.Config, l *logger.Logger) *WebhookHandler {
	return &WebhookHandler{channels: channels, whatsapp: whatsapp, email: email, cfg: cfg, logger: l}
}

// VerifyWhatsApp answers the Meta subscription handshake: echo
// hub.challenge when the verify token matches.
func (h *WebhookHandler) VerifyWhatsApp(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "subscribe" || token == "" || token != h.cfg.WhatsApp.VerifyToken {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("verification failed", httpdto.CodeAccessDenied))
		return
	}
	c.String(http.StatusOK, challenge)
}

// ReceiveWhatsApp ingests a Meta Cloud API webhook batch. Each message
// and status is processed independently; a single bad entry must not
// fail the whole batch, or the provider retries everything.
func (h *WebhookHandler) ReceiveWhatsApp(c *gin.Context) {
	var req httpdto.WhatsAppWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid payload", httpdto.CodeInvalidRequest))
		return
	}

	ctx := c.Request.Context()
	accepted, rejected := 0, 0
	for _, entry := range req.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			value := change.Value
			ch, err := h.channels.ResolveBySenderIdentifier(ctx, domain.ChannelTypeWhatsApp, value.Metadata.PhoneNumberID)
			if err != nil {
				h.logger.Warnf("no channel for phone number id %s: %v", value.Metadata.PhoneNumberID, err)
				rejected += len(value.Messages) + len(value.Statuses)
				continue
			}

			names := make(map[string]string, len(value.Contacts))
			for _, contact := range value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, msg := range value.Messages {
				in := inboundFromWebhook(ch.ID, msg)
				in.DisplayName = names[msg.From]
				if _, err := h.whatsapp.HandleInbound(ctx, in); err != nil {
					h.logger.ErrorfCtx(ctx, "inbound whatsapp message %s rejected: %v", msg.ID, err)
					rejected++
					continue
				}
				accepted++
			}

			for _, status := range value.Statuses {
				at := webhookTimestamp(status.Timestamp)
				if err := h.whatsapp.HandleStatusUpdate(ctx, status.ID, receiptStatus(status.Status), at); err != nil {
					h.logger.ErrorfCtx(ctx, "status update for %s rejected: %v", status.ID, err)
					rejected++
					continue
				}
				accepted++
			}
		}
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.WebhookAckResponse{Accepted: accepted, Rejected: rejected}))
}

// ReceiveEmail ingests an inbound-parse post from the email provider.
func (h *WebhookHandler) ReceiveEmail(c *gin.Context) {
	if want := h.cfg.Email.InboundToken; want != "" && c.Query("token") != want {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("invalid inbound token", httpdto.CodeAccessDenied))
		return
	}

	var req httpdto.EmailWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid payload", httpdto.CodeInvalidRequest))
		return
	}
	channelID, err := uuid.Parse(req.ChannelID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid channel id", httpdto.CodeInvalidRequest))
		return
	}

	in := services.InboundEmailMessage{
		ChannelID:         channelID,
		Token:             req.ThreadToken,
		FromName:          req.FromName,
		FromAddress:       req.From,
		ToAddress:         req.To,
		Subject:           req.Subject,
		Body:              req.TextBody,
		ProviderMessageID: req.MessageID,
	}
	for _, a := range req.Attachments {
		in.Attachments = append(in.Attachments, services.InboundAttachment{
			URL:      a.URL,
			MimeType: a.MimeType,
			Title:    a.Name,
		})
	}

	msg, err := h.email.HandleInbound(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromEmailMessage(msg)))
}

// ReceiveEmailEvent ingests a delivery event (delivered, open, bounce).
func (h *WebhookHandler) ReceiveEmailEvent(c *gin.Context) {
	var req httpdto.EmailDeliveryEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid payload", httpdto.CodeInvalidRequest))
		return
	}

	if err := h.email.HandleStatusUpdate(c.Request.Context(), req.MessageID, receiptStatus(req.Event), time.Time{}); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.WebhookAckResponse{Accepted: 1}))
}

func inboundFromWebhook(channelID uuid.UUID, msg httpdto.WhatsAppWebhookMessage) services.InboundWhatsAppMessage {
	in := services.InboundWhatsAppMessage{
		ChannelID:         channelID,
		FromPhone:         msg.From,
		ProviderMessageID: msg.ID,
		ReceivedAt:        webhookTimestamp(msg.Timestamp),
	}

	switch msg.Type {
	case "image":
		in.Type = domain.MessageTypeImage
		in.Attachments = mediaAttachment(msg.Image)
		in.Body = mediaCaption(msg.Image)
	case "video":
		in.Type = domain.MessageTypeVideo
		in.Attachments = mediaAttachment(msg.Video)
		in.Body = mediaCaption(msg.Video)
	case "audio":
		in.Type = domain.MessageTypeAudio
		in.Attachments = mediaAttachment(msg.Audio)
	case "document":
		in.Type = domain.MessageTypeDocument
		in.Attachments = mediaAttachment(msg.Document)
		in.Body = mediaCaption(msg.Document)
	case "sticker":
		in.Type = domain.MessageTypeSticker
		in.Attachments = mediaAttachment(msg.Sticker)
	case "location":
		in.Type = domain.MessageTypeLocation
	case "contacts":
		in.Type = domain.MessageTypeContact
	default:
		in.Type = domain.MessageTypeText
		if msg.Text != nil {
			in.Body = msg.Text.Body
		}
	}
	return in
}

func mediaAttachment(m *httpdto.WhatsAppWebhookMedia) []services.InboundAttachment {
	if m == nil {
		return nil
	}
	return []services.InboundAttachment{{
		URL:        m.Link,
		MimeType:   m.MimeType,
		Title:      m.Filename,
		StorageKey: m.ID,
	}}
}

func mediaCaption(m *httpdto.WhatsAppWebhookMedia) string {
	if m == nil {
		return ""
	}
	return m.Caption
}

func receiptStatus(s string) domain.MessageStatus {
	switch s {
	case "sent":
		return domain.MessageStatusSent
	case "delivered":
		return domain.MessageStatusDelivered
	case "read", "open":
		return domain.MessageStatusRead
	case "failed", "bounce", "dropped":
		return domain.MessageStatusFailed
	default:
		return domain.MessageStatusDelivered
	}
}

func webhookTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
