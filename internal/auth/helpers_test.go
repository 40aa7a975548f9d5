package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db      *database.Database
	service *Service
	sm      *SessionManager
	cfg     config.Auth
}

func testAuthConfig() config.Auth {
	return config.Auth{
		SessionLifetime:     24 * time.Hour,
		BcryptCost:          bcrypt.MinCost,
		RegistrationEnabled: true,
		MaxLoginAttempts:    3,
		RateLimitWindow:     time.Minute,
		LockoutDuration:     time.Minute,
	}
}

func setupTestEnv(t *testing.T, cfg config.Auth) *testEnv {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.SQLDB()
	require.NoError(t, err)

	sm, err := NewSessionManager(sqlDB, cfg)
	require.NoError(t, err)

	return &testEnv{
		db:      db,
		service: NewService(users.NewRepository(db.DB), cfg, zap.NewNop()),
		sm:      sm,
		cfg:     cfg,
	}
}

// router wires the auth endpoints plus a protected /admin page, the way the
// application router does.
func (e *testEnv) router(t *testing.T) *gin.Engine {
	t.Helper()

	logger := zap.NewNop()
	middleware := NewMiddleware(e.service, e.sm, logger)
	controller := NewAuthController(e.service, e.sm, "", e.cfg, logger)
	t.Cleanup(controller.Stop)

	router := gin.New()
	router.Use(e.sm.SessionLoadSave(logger))
	router.Use(middleware.Handler())
	controller.RegisterRoutes(router)

	admin := router.Group("/", middleware.RequireAuth())
	admin.GET("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "email": GetEmail(c)})
	})

	return router
}

// client replays cookies between requests like a browser would.
type client struct {
	router  http.Handler
	cookies map[string]*http.Cookie
}

func newClient(router http.Handler) *client {
	return &client{router: router, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	cl.router.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(cl.cookies, c.Name)
			continue
		}
		cl.cookies[c.Name] = c
	}
	return rr
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func credentials(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}
