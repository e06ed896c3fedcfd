package middleware

import (
	"net/http"
	"strconv"

	"relaydesk/internal/redis"
	"relaydesk/internal/services"
	"relaydesk/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// SendRateLimitMiddleware throttles outbound message sends per actor.
// Apply to send endpoints after the auth middleware.
func SendRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := services.ActorFromContext(c.Request.Context())
		if !ok {
			// No actor yet, auth middleware rejects unauthenticated calls
			c.Next()
			return
		}

		result, err := limiter.AllowSend(c.Request.Context(), actor.UserID.String())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", httpdto.CodeInternalError))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("send rate limit exceeded", httpdto.CodeRateLimited))
			c.Abort()
			return
		}

		c.Next()
	}
}

// WebhookRateLimitMiddleware throttles webhook intake per source IP.
func WebhookRateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowWebhook(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("rate limit error", httpdto.CodeInternalError))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("webhook rate limit exceeded", httpdto.CodeRateLimited))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
