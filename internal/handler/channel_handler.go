package handler

import (
	"net/http"

	"relaydesk/internal/domain"
	"relaydesk/internal/services"
	"relaydesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChannelHandler struct {
	service *services.ChannelService
}

func NewChannelHandler(service *services.ChannelService) *ChannelHandler {
	return &ChannelHandler{service: service}
}

func (h *ChannelHandler) Create(c *gin.Context) {
	var req httpdto.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	ch, err := h.service.Create(c.Request.Context(), actor, services.CreateChannelInput{
		Name:             req.Name,
		Type:             domain.ChannelType(req.Type),
		Provider:         req.Provider,
		SenderIdentifier: req.SenderIdentifier,
		Visibility:       domain.ChannelVisibility(req.Visibility),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromChannel(ch)))
}

func (h *ChannelHandler) List(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListChannelsResponse{
		Channels: httpdto.FromChannelSlice(items),
	}))
}

func (h *ChannelHandler) Disable(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid channel id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	if err := h.service.Disable(c.Request.Context(), actor, channelID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"disabled": true}))
}
