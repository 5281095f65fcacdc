package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docvault/internal/auth"
)

// Context keys set by AuthMiddleware for downstream handlers.
const (
	CtxUser       = "user"
	CtxExternalID = "externalID"
	CtxUsername   = "username"
	CtxToken      = "token"
)

// AuthMiddleware resolves the bearer token to a principal once per request
// and stores the external id in the gin context. The token itself is the
// only credential; there are no cookies.
func AuthMiddleware(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		user, err := authService.Introspect(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidSession) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
			return
		}

		c.Set(CtxUser, user)
		c.Set(CtxExternalID, user.ExternalID)
		c.Set(CtxUsername, user.Username)
		c.Set(CtxToken, token)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
