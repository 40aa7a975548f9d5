package auth

import (
	"errors"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/config"
)

// DefaultRedirectPath is where a successful login or registration lands.
const DefaultRedirectPath = "/admin"

// Login page error codes, carried in the error query parameter.
const (
	loginErrorInvalid = "invalid"
	loginErrorLocked  = "locked"
	loginErrorExpired = "expired"
)

var loginErrorMessages = map[string]string{
	loginErrorInvalid: "Invalid email or password.",
	loginErrorLocked:  "Too many login attempts. Please try again later.",
	loginErrorExpired: "Your form expired. Please try again.",
}

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
// Returns true if the path is safe for redirect (local path only).
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Must start with /
	if !strings.HasPrefix(path, "/") {
		return false
	}

	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}

	// Reject URLs with schemes
	if strings.Contains(path, "://") {
		return false
	}

	// Reject paths with backslashes (potential bypass attempts)
	if strings.Contains(path, "\\") {
		return false
	}

	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to the admin view.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return DefaultRedirectPath
}

// AuthController handles the login, registration and logout endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	templates      *template.Template
	config         config.Auth
	throttle       *loginThrottle
	logger         *zap.Logger
}

// NewAuthController creates a new authentication controller. Templates are
// read from templatesPath/auth/*.html; without them pages are answered as JSON.
func NewAuthController(service *Service, sessionManager *SessionManager, templatesPath string, cfg config.Auth, logger *zap.Logger) *AuthController {
	var tmpl *template.Template
	if templatesPath != "" {
		parsed, err := template.ParseGlob(filepath.Join(templatesPath, "auth", "*.html"))
		if err != nil {
			logger.Warn("Auth templates not loaded, falling back to JSON", zap.Error(err))
		} else {
			tmpl = parsed
		}
	}

	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		templates:      tmpl,
		config:         cfg,
		throttle:       newLoginThrottle(cfg),
		logger:         logger.Named("auth"),
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRoutes) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/logout", ac.Logout)
	if ac.config.RegistrationEnabled {
		router.GET("/register", ac.RegisterPage)
		router.POST("/register", ac.Register)
	}
}

// Stop ends the login throttle's background sweep.
func (ac *AuthController) Stop() {
	ac.throttle.Stop()
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, DefaultRedirectPath)
		return
	}

	ac.renderTemplate(c, http.StatusOK, "login.html", gin.H{
		"Title":     "Login",
		"Next":      sanitizeRedirectPath(c.Query("next")),
		"CSRFField": CSRFTokenField(c),
		"Error":     loginErrorMessages[c.Query("error")],
	})
}

// Login handles the login form submission. Any failure sends the browser back
// to the login page with the same generic message.
func (ac *AuthController) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	next := sanitizeRedirectPath(c.PostForm("next"))
	clientIP := c.ClientIP()

	if wait, locked := ac.throttle.locked(clientIP, email); locked {
		ac.rejectLocked(c, wait, next)
		return
	}

	user, err := ac.service.Login(c.Request.Context(), email, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			ac.logger.Error("Login failed", zap.Error(err))
		}
		if wait, locked := ac.throttle.fail(clientIP, email); locked {
			ac.logger.Warn("Login locked out", zap.String("ip", clientIP), zap.Duration("for", wait))
			ac.rejectLocked(c, wait, next)
			return
		}
		ac.redirectToLogin(c, loginErrorInvalid, next)
		return
	}

	ac.throttle.reset(clientIP, email)

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		ac.logger.Error("Failed to create session", zap.Error(err))
		ac.redirectToLogin(c, loginErrorInvalid, next)
		return
	}

	c.Redirect(http.StatusFound, next)
}

// Logout destroys the session and redirects home. It succeeds whether or not
// a session exists.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		ac.logger.Warn("Failed to destroy session", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

// RegisterPage renders the registration form.
func (ac *AuthController) RegisterPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, DefaultRedirectPath)
		return
	}

	ac.renderTemplate(c, http.StatusOK, "register.html", gin.H{
		"Title":     "Register",
		"CSRFField": CSRFTokenField(c),
		"Error":     loginErrorMessages[c.Query("error")],
	})
}

// Register creates an administrator and logs them in.
func (ac *AuthController) Register(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	user, err := ac.service.Register(c.Request.Context(), email, password)
	if err != nil {
		status := http.StatusBadRequest
		errorMsg := "Failed to create user"
		switch {
		case errors.Is(err, ErrEmailTaken):
			status = http.StatusConflict
			errorMsg = "Email already exists. Try logging in."
		case errors.Is(err, ErrEmailRequired):
			errorMsg = "Email is required"
		case errors.Is(err, ErrEmailInvalid):
			errorMsg = "Invalid email format"
		case errors.Is(err, ErrPasswordRequired):
			errorMsg = "Password is required"
		case errors.Is(err, ErrPasswordTooLong):
			errorMsg = "Password exceeds maximum length of 72 characters"
		default:
			status = http.StatusInternalServerError
			ac.logger.Error("Registration failed", zap.Error(err))
		}

		ac.renderTemplate(c, status, "register.html", gin.H{
			"Title":     "Register",
			"Email":     email,
			"CSRFField": CSRFTokenField(c),
			"Error":     errorMsg,
		})
		return
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		ac.logger.Error("Failed to create session", zap.Error(err))
		c.Redirect(http.StatusFound, "/login")
		return
	}

	c.Redirect(http.StatusFound, DefaultRedirectPath)
}

func (ac *AuthController) redirectToLogin(c *gin.Context, code, next string) {
	q := url.Values{}
	q.Set("error", code)
	if next != DefaultRedirectPath {
		q.Set("next", next)
	}
	c.Redirect(http.StatusFound, "/login?"+q.Encode())
}

// rejectLocked answers a throttled login, telling the client when to retry.
func (ac *AuthController) rejectLocked(c *gin.Context, wait time.Duration, next string) {
	c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	ac.redirectToLogin(c, loginErrorLocked, next)
}

// renderTemplate renders an auth template or falls back to JSON.
func (ac *AuthController) renderTemplate(c *gin.Context, status int, name string, data gin.H) {
	if ac.templates == nil {
		c.JSON(status, data)
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := ac.templates.ExecuteTemplate(c.Writer, name, data); err != nil {
		ac.logger.Error("Template error", zap.String("template", name), zap.Error(err))
	}
}
