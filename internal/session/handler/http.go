// Package handler lists a caller's active sessions so clients can render a
// "signed-in devices" view.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authhandler "taskhub/backend/internal/auth/handler"
	"taskhub/backend/internal/session/domain"
)

// SessionLister is the slice of the session repository this handler needs.
type SessionLister interface {
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
}

// SessionHandler serves the authenticated session listing.
type SessionHandler struct {
	sessions SessionLister
}

// NewSessionHandler returns a SessionHandler over the given lister.
func NewSessionHandler(sessions SessionLister) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Register mounts the session routes behind the access-token middleware.
func (h *SessionHandler) Register(r *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	r.GET("/sessions", requireAuth, h.List)
}

type sessionView struct {
	ID            string     `json:"id"`
	DeviceKey     string     `json:"device_key"`
	SourceAddress string     `json:"source_address"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Current       bool       `json:"current"`
}

// List returns the caller's active sessions oldest first, marking the one
// the presented access token belongs to.
func (h *SessionHandler) List(c *gin.Context) {
	userID := authhandler.GetUserID(c)
	current := authhandler.GetSessionID(c)

	active, err := h.sessions.ListActiveByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	views := make([]sessionView, 0, len(active))
	for _, sess := range active {
		views = append(views, sessionView{
			ID:            sess.ID,
			DeviceKey:     sess.DeviceKey,
			SourceAddress: sess.SourceAddress,
			CreatedAt:     sess.CreatedAt,
			LastUsedAt:    sess.LastUsedAt,
			ExpiresAt:     sess.ExpiresAt,
			Current:       sess.ID == current,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": views})
}
