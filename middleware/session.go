package middleware

import (
	"net/http"
	"strings"

	"courtwise/services/session"
	"courtwise/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionGetter resolves a client session key to its synchronizer.
type SessionGetter interface {
	Get(key string) (*session.Synchronizer, error)
}

// SessionAuthMiddleware requires a session token issued by POST /api/session
// and puts the client session in the context as "session".
func SessionAuthMiddleware(sessions SessionGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header", Code: "missing_session"})
			return
		}
		key, err := utils.ExtractSessionKey(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid session token", Code: "invalid_session"})
			return
		}

		s, err := sessions.Get(key)
		if err != nil {
			zap.L().Warn("Failed to open client session", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, utils.ErrorResponse{Message: "Server is shutting down"})
			return
		}
		c.Set("sessionKey", key)
		c.Set("session", s)
		c.Next()
	}
}
