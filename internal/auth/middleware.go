package auth

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys for user data
const (
	ContextKeyUserID = "auth_user_id"
	ContextKeyEmail  = "auth_email"
)

// Middleware resolves the session of each request into the authenticated user.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	logger         *zap.Logger
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager, logger *zap.Logger) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		logger:         logger.Named("auth"),
	}
}

// Handler identifies the user behind the session cookie, if any, and stores
// it in the Gin context. It never rejects a request; use RequireAuth for that.
// The user record is re-read from the credential store on every request so a
// deleted user loses access immediately.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := m.sessionManager.GetUserID(c.Request)
		if userID != 0 {
			user, err := m.service.RequireAuthenticated(c.Request.Context(), userID)
			switch {
			case err == nil:
				c.Set(ContextKeyUserID, user.ID)
				c.Set(ContextKeyEmail, user.Email)
			case !errors.Is(err, ErrUnauthenticated):
				m.logger.Error("Failed to resolve session user", zap.Uint("user_id", userID), zap.Error(err))
			}
		}
		c.Next()
	}
}

// RequireAuth redirects anonymous requests to the login page, remembering
// where they were headed.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthenticated(c) {
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if not authenticated.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetEmail retrieves the authenticated user's email from the context.
func GetEmail(c *gin.Context) string {
	if v, exists := c.Get(ContextKeyEmail); exists {
		if email, ok := v.(string); ok {
			return email
		}
	}
	return ""
}

// IsAuthenticated returns true if the request is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != 0
}
