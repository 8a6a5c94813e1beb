package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskhub/backend/internal/security"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	ctxUserID    = "auth.user_id"
	ctxRole      = "auth.role"
	ctxSessionID = "auth.session_id"
)

// RequireAuth validates the Bearer access token and stashes its claims in
// the request context. Requests without a valid token are rejected before
// the handler runs.
func RequireAuth(tokens *security.TokenProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := tokens.ValidateAccess(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ctxUserID, claims.Subject)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxSessionID, claims.SessionID)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// GetUserID returns the authenticated user's id, or "" outside RequireAuth.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// GetRole returns the authenticated user's role claim.
func GetRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// GetSessionID returns the session id bound to the presented access token.
func GetSessionID(c *gin.Context) string {
	return c.GetString(ctxSessionID)
}
