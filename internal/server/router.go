// Package server assembles the HTTP API: routes, middleware, and health.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authhandler "taskhub/backend/internal/auth/handler"
	authservice "taskhub/backend/internal/auth/service"
	"taskhub/backend/internal/security"
	sessionhandler "taskhub/backend/internal/session/handler"
)

// Pinger reports backing-store reachability for the health endpoint.
type Pinger interface {
	Ping() error
}

// Deps carries everything the router needs. Tokens and Auth are required;
// Sessions and DB may be nil, in which case their routes degrade gracefully.
type Deps struct {
	Auth     *authservice.AuthService
	Sessions sessionhandler.SessionLister
	Tokens   *security.TokenProvider
	DB       Pinger
}

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestTelemetry("taskhub-server"))

	r.GET("/healthz", healthCheck(deps.DB))

	requireAuth := authhandler.RequireAuth(deps.Tokens)

	v1 := r.Group("/v1")
	authhandler.NewAuthHandler(deps.Auth).Register(v1.Group("/auth"), requireAuth)
	if deps.Sessions != nil {
		sessionhandler.NewSessionHandler(deps.Sessions).Register(v1, requireAuth)
	}

	return r
}

// healthCheck reports liveness, and readiness when a Pinger is wired.
func healthCheck(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := db.Ping(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
