package handler

import (
	"net/http"

	"relaydesk/internal/services"
	"relaydesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ConversationThreadHandler struct {
	service *services.ConversationThreadService
	threads *services.ThreadService
}

func NewConversationThreadHandler(service *services.ConversationThreadService, threads *services.ThreadService) *ConversationThreadHandler {
	return &ConversationThreadHandler{service: service, threads: threads}
}

func (h *ConversationThreadHandler) List(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), actor, threadID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListConversationThreadsResponse{
		Threads: httpdto.FromConversationThreadSlice(items),
	}))
}

// Start opens a new conversation thread, closing the previous active
// one in the same transaction.
func (h *ConversationThreadHandler) Start(c *gin.Context) {
	threadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid thread id", httpdto.CodeInvalidRequest))
		return
	}
	var req httpdto.StartConversationThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	res, err := h.service.StartNew(c.Request.Context(), actor, threadID, req.Label)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromStartNewResult(res)))
}

func (h *ConversationThreadHandler) Messages(c *gin.Context) {
	conversationThreadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid conversation thread id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	page, limit := pageParams(c)
	items, total, err := h.threads.ListConversationThreadMessages(c.Request.Context(), actor, conversationThreadID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListWhatsAppMessagesResponse{
		Messages: httpdto.FromWhatsAppMessageSlice(items),
		Total:    total,
	}))
}
