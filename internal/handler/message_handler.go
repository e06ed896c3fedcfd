package handler

import (
	"net/http"
	"strconv"
	"time"

	"relaydesk/internal/domain"
	"relaydesk/internal/services"
	"relaydesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	whatsapp *services.WhatsAppRouter
	email    *services.EmailRouter
	threads  *services.ThreadService
}

func NewMessageHandler(whatsapp *services.WhatsAppRouter, email *services.EmailRouter, threads *services.ThreadService) *MessageHandler {
	return &MessageHandler{whatsapp: whatsapp, email: email, threads: threads}
}

func (h *MessageHandler) SendWhatsApp(c *gin.Context) {
	var req httpdto.SendWhatsAppMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	in := services.SendWhatsAppInput{
		Body:           req.Body,
		ToPhone:        req.To,
		TemplateName:   req.TemplateName,
		TemplateParams: req.TemplateParams,
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.ThreadID != "" {
		id, err := uuid.Parse(req.ThreadID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
			return
		}
		in.ThreadID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if req.ChannelID != "" {
		id, err := uuid.Parse(req.ChannelID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid channel id", httpdto.CodeInvalidRequest))
			return
		}
		in.ChannelID = id
	}

	msg, err := h.whatsapp.Send(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromWhatsAppMessage(msg)))
}

func (h *MessageHandler) SendEmail(c *gin.Context) {
	var req httpdto.SendEmailMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	in := services.SendEmailInput{
		To:             req.To,
		Subject:        req.Subject,
		Body:           req.Body,
		FromName:       req.FromName,
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.ThreadID != "" {
		id, err := uuid.Parse(req.ThreadID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
			return
		}
		in.ThreadID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if req.ChannelID != "" {
		id, err := uuid.Parse(req.ChannelID)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid channel id", httpdto.CodeInvalidRequest))
			return
		}
		in.ChannelID = id
	}

	msg, err := h.email.Send(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FromEmailMessage(msg)))
}

// Search runs a cross-channel message search scoped to the actor's team.
func (h *MessageHandler) Search(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	in := services.SearchInput{
		Query:     c.Query("q"),
		Direction: domain.Direction(c.Query("direction")),
	}
	if raw := c.Query("channel_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid channel id", httpdto.CodeInvalidRequest))
			return
		}
		in.ChannelID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if raw := c.Query("from"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid from timestamp", httpdto.CodeInvalidRequest))
			return
		}
		in.From = &at
	}
	if raw := c.Query("to"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid to timestamp", httpdto.CodeInvalidRequest))
			return
		}
		in.To = &at
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			in.Limit = limit
		}
	}

	res, err := h.threads.SearchMessages(c.Request.Context(), actor, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromSearchResults(res)))
}
