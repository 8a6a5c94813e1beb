// Package handler exposes the session lifecycle over HTTP. Handlers stay
// thin: bind, call the service, map sentinel errors to status codes.
package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/backend/internal/auth/service"
)

// AuthHandler serves login, refresh, logout, and force revocation.
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler returns an AuthHandler over svc.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register mounts the auth routes. Logout and revoke-all sit behind the
// access-token middleware; login and refresh are open by nature.
func (h *AuthHandler) Register(r *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	r.POST("/login", h.Login)
	r.POST("/refresh", h.Refresh)
	r.POST("/logout", requireAuth, h.Logout)
	r.POST("/revoke-all", requireAuth, h.RevokeAll)
}

type loginRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	DeviceKey string `json:"device_key"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Login authenticates with email/password and returns a token pair.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	deviceKey := req.DeviceKey
	if deviceKey == "" {
		deviceKey = deriveDeviceKey(c.Request.UserAgent())
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, deviceKey, c.ClientIP())
	if err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
		ExpiresAt:    res.AccessExpiresAt.Unix(),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh credential and returns a fresh token pair.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}
	res, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		SessionID:    res.SessionID,
		ExpiresAt:    res.AccessExpiresAt.Unix(),
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the caller's session named by the optional refresh token, or
// all of the caller's sessions when none is given. Always returns ok.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req) // body is optional
	userID := GetUserID(c)
	if err := h.svc.Logout(c.Request.Context(), userID, req.RefreshToken); err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RevokeAll unconditionally revokes every active session for the caller.
func (h *AuthHandler) RevokeAll(c *gin.Context) {
	userID := GetUserID(c)
	if err := h.svc.ForceRevokeAll(c.Request.Context(), userID); err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// mapError translates service sentinels into HTTP responses. Invalid
// credentials and invalid tokens render identically so the API is not an
// account or session oracle.
func mapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrAccountNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "account not verified"})
	case errors.Is(err, service.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
	case errors.Is(err, service.ErrReplayDetected):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session invalidated, please log in again"})
	case errors.Is(err, service.ErrTooManyAttempts):
		c.Header("Retry-After", "900")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// deriveDeviceKey fingerprints a user agent when the client supplies no
// device key of its own. Hashing keeps raw UA strings out of session rows.
func deriveDeviceKey(userAgent string) string {
	if userAgent == "" {
		return "unknown-device"
	}
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:16])
}
