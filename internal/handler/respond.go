package handler

import (
	"errors"
	"net/http"

	"relaydesk/internal/services"
	"relaydesk/internal/transport/httpdto"
	relay_errors "relaydesk/pkg/errors"

	"github.com/gin-gonic/gin"
)

// respondError maps sentinel errors onto the wire taxonomy.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, relay_errors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse(err.Error(), httpdto.CodeValidationError))
	case errors.Is(err, relay_errors.ErrWindowClosed):
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse(err.Error(), httpdto.CodeWindowClosed))
	case errors.Is(err, relay_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), httpdto.CodeNotFound))
	case errors.Is(err, relay_errors.ErrAccessDenied):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse(err.Error(), httpdto.CodeAccessDenied))
	case errors.Is(err, relay_errors.ErrChannelDisabled):
		c.JSON(http.StatusUnprocessableEntity, httpdto.NewErrorResponse(err.Error(), httpdto.CodeChannelDisabled))
	case errors.Is(err, relay_errors.ErrTransport):
		c.JSON(http.StatusBadGateway, httpdto.NewErrorResponse(err.Error(), httpdto.CodeTransportError))
	case errors.Is(err, relay_errors.ErrConflict):
		c.JSON(http.StatusConflict, httpdto.NewErrorResponse(err.Error(), httpdto.CodeConflict))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), httpdto.CodeInternalError))
	}
}

func actorOrAbort(c *gin.Context) (services.Actor, bool) {
	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", httpdto.CodeUnauthorized))
		return services.Actor{}, false
	}
	return actor, true
}
