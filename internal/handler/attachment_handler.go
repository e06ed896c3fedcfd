package handler

import (
	"net/http"

	"relaydesk/internal/services"
	"relaydesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AttachmentHandler struct {
	service *services.AttachmentService
}

func NewAttachmentHandler(service *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: service}
}

// DownloadURL returns a short-lived URL for the attachment's bytes.
func (h *AttachmentHandler) DownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid attachment id", httpdto.CodeInvalidRequest))
		return
	}
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}

	url, err := h.service.DownloadURL(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.AttachmentURLResponse{URL: url}))
}
