package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"gupayment/internal/response"
	"gupayment/pkg/logging"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware protects the billing admin routes with a shared API key
// sent in the X-API-Key header or the api_key query parameter.
func AdminAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "Admin API key not configured")
			return
		}

		provided := c.GetHeader("X-API-Key")
		// If not passed via header, try to get from query parameters
		if provided == "" {
			provided = c.Query("api_key")
		}

		if provided == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "Missing api_key")
			return
		}
		if !secureCompare(provided, apiKey) {
			response.AbortWithError(c, http.StatusUnauthorized, "Invalid api_key")
			return
		}

		c.Next()
	}
}

// WebhookAuthMiddleware checks the Authorization header the gateway is
// configured to send with every webhook. An empty token disables the check.
func WebhookAuthMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		provided := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if !secureCompare(provided, token) {
			logging.Warnf("Rejected webhook from %s: invalid authorization token", c.ClientIP())
			response.AbortWithError(c, http.StatusUnauthorized, "Invalid webhook token")
			return
		}
		c.Next()
	}
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
