package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// IdentityHeader carries the caller's user id, set by the upstream auth
	// collaborator which terminates authentication before us.
	IdentityHeader = "X-User-ID"

	identityContextKey = "user_id"
)

// Identity middleware extracts the caller's user id from the request
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(IdentityHeader))
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user identity required"})
			c.Abort()
			return
		}

		c.Set(identityContextKey, userID)
		c.Next()
	}
}

// GetUserID retrieves the user ID from the context
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(identityContextKey)
	if !exists {
		return "", false
	}

	userIDStr, ok := userID.(string)
	return userIDStr, ok
}
