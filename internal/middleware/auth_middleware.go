package middleware

import (
	"context"
	"net/http"
	"strings"

	"relaydesk/internal/services"
	"relaydesk/internal/transport/httpdto"
	"relaydesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

func AuthMiddleware(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		claims, err := tokens.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", httpdto.CodeUnauthorized))
			c.Abort()
			return
		}

		actor, err := tokens.ActorFromClaims(claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", httpdto.CodeUnauthorized))
			c.Abort()
			return
		}

		ctx := services.WithActor(c.Request.Context(), actor)
		ctx = context.WithValue(ctx, logger.ActorIdKey, actor.UserID.String())
		ctx = context.WithValue(ctx, logger.TeamIdKey, actor.TeamID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
