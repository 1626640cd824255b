package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// APIKeyHeader carries the shared secret for /v1 routes
	APIKeyHeader = "X-Focusroom-Key"
	// AuthenticatedKey is set on the context once the key was accepted
	AuthenticatedKey = "authenticated"
)

// APIKeyAuth rejects requests whose key header does not match apiKey
func APIKeyAuth(apiKey string) gin.HandlerFunc {
	expected := []byte(apiKey)
	return func(c *gin.Context) {
		provided := c.GetHeader(APIKeyHeader)
		if provided == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": APIKeyHeader + " header required",
				"code":  "AUTH_REQUIRED",
			})
			c.Abort()
			return
		}

		if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Unauthorized",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		c.Set(AuthenticatedKey, true)
		c.Next()
	}
}
