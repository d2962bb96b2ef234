package httpmw

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserIDHeader carries the caller identity on every authenticated route.
const UserIDHeader = "X-User-ID"

const userIDContextKey = "northstar-user-id"

// RequireUser rejects requests without an X-User-ID header and stores the
// caller identity on the gin context for handlers.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "missing X-User-ID header"})
			return
		}
		c.Set(userIDContextKey, userID)
		c.Next()
	}
}

// UserID returns the caller identity set by RequireUser. Empty when the
// middleware did not run.
func UserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}
