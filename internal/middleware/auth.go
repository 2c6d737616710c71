// Package middleware holds the gin middleware for authentication and
// rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realtime-chat/internal/service"
)

// ContextUserIDKey is the gin context key under which the authenticated
// user id is stored.
const ContextUserIDKey = "userID"

// extractToken pulls a bearer token from the Authorization header, or
// falls back to the token query parameter for WebSocket clients that
// cannot set headers.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// Auth returns middleware that requires a valid JWT and aborts with 401
// otherwise.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		userID, err := authService.ValidateToken(tokenStr)
		if err != nil {
			logrus.WithError(err).Debug("Auth middleware: token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// OptionalAuth returns middleware that resolves a JWT when one is
// presented but never aborts: a missing or invalid token simply leaves
// the request anonymous. A rejected token is logged and the request
// proceeds without an identity.
func OptionalAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			c.Next()
			return
		}

		userID, err := authService.ValidateToken(tokenStr)
		if err != nil {
			logrus.WithError(err).Debug("OptionalAuth middleware: token rejected, continuing as anonymous")
			c.Next()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// UserIDFromContext reads the authenticated user id set by Auth or
// OptionalAuth. ok is false when the request is anonymous.
func UserIDFromContext(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := v.(uint)
	return userID, ok
}
