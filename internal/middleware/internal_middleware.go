package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// InternalAuthMiddleware admits only requests carrying the gateway's
// X-Internal-Secret. The gateway-authenticated user id, when present, is
// stored in the context as "authenticatedUserID".
func InternalAuthMiddleware(secret string) gin.HandlerFunc {
	if secret == "" {
		panic("FATAL: INTERNAL_API_SECRET is not set")
	}
	want := []byte(secret)

	return func(c *gin.Context) {
		got := []byte(c.GetHeader("X-Internal-Secret"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: Invalid internal secret"})
			return
		}

		if userID := c.GetHeader("X-Authenticated-User-ID"); userID != "" {
			c.Set("authenticatedUserID", userID)
		}
		c.Next()
	}
}
