package handler

import (
	"net/http"
	"strconv"

	"relaydesk/internal/domain"
	"relaydesk/internal/services"
	"relaydesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ThreadHandler struct {
	threads  *services.ThreadService
	channels *services.ChannelService
}

func NewThreadHandler(threads *services.ThreadService, channels *services.ChannelService) *ThreadHandler {
	return &ThreadHandler{threads: threads, channels: channels}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return page, limit
}

// ListByChannel dispatches on the channel's type: a channel holds
// either email threads or WhatsApp threads, never both.
func (h *ThreadHandler) ListByChannel(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid channel id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	ch, err := h.channels.GetAccessible(c.Request.Context(), actor, channelID)
	if err != nil {
		respondError(c, err)
		return
	}

	page, limit := pageParams(c)
	switch ch.Type {
	case domain.ChannelTypeWhatsApp:
		items, total, err := h.threads.ListWhatsAppThreads(c.Request.Context(), actor, channelID, page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListWhatsAppThreadsResponse{
			Threads: httpdto.FromWhatsAppThreadSlice(items),
			Total:   total,
		}))
	default:
		items, total, err := h.threads.ListEmailThreads(c.Request.Context(), actor, channelID, page, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListEmailThreadsResponse{
			Threads: httpdto.FromEmailThreadSlice(items),
			Total:   total,
		}))
	}
}

// ShowWhatsApp returns the timeline and clears the unread flag.
func (h *ThreadHandler) ShowWhatsApp(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	page, limit := pageParams(c)
	timeline, err := h.threads.ShowWhatsAppThread(c.Request.Context(), actor, threadID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromWhatsAppTimeline(timeline)))
}

func (h *ThreadHandler) MarkRead(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	if err := h.threads.MarkRead(c.Request.Context(), actor, threadID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"read": true}))
}

func (h *ThreadHandler) DeletionPreview(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	preview, err := h.threads.PreviewWhatsAppThreadDeletion(c.Request.Context(), actor, threadID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DeletionPreviewResponse{
		MessageCount:            preview.MessageCount,
		ConversationThreadCount: preview.ConversationThreadCount,
	}))
}

func (h *ThreadHandler) DeleteWhatsApp(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	if err := h.threads.DeleteWhatsAppThread(c.Request.Context(), actor, threadID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"deleted": true}))
}

func (h *ThreadHandler) GetEmail(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	t, err := h.threads.GetEmailThread(c.Request.Context(), actor, threadID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromEmailThread(t)))
}

func (h *ThreadHandler) ListEmailMessages(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	page, limit := pageParams(c)
	items, total, err := h.threads.ListEmailMessages(c.Request.Context(), actor, threadID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListEmailMessagesResponse{
		Messages: httpdto.FromEmailMessageSlice(items),
		Total:    total,
	}))
}
