package http

import (
	"context"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testEmail    = "admin@example.com"
	testPassword = "correct horse battery staple"
)

// recordingScheduler stands in for the cover scheduler.
type recordingScheduler struct {
	mu    sync.Mutex
	isbns []string
}

func (s *recordingScheduler) Schedule(isbns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isbns = append(s.isbns, isbns...)
}

func (s *recordingScheduler) scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.isbns...)
}

type testApp struct {
	db     *database.Database
	books  *books.Repository
	auth   *auth.Service
	covers *covers.Fetcher
	sched  *recordingScheduler
	router *gin.Engine
}

func testAuthConfig() config.Auth {
	return config.Auth{
		SessionLifetime:     24 * time.Hour,
		BcryptCost:          bcrypt.MinCost,
		RegistrationEnabled: true,
		MaxLoginAttempts:    5,
		RateLimitWindow:     time.Minute,
		LockoutDuration:     time.Minute,
	}
}

func setupTestApp(t *testing.T, mutate ...func(*RouterConfig)) *testApp {
	t.Helper()
	logger := zap.NewNop()

	dir := t.TempDir()
	db, err := database.NewDatabase(filepath.Join(dir, "bookshelf.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.SQLDB()
	require.NoError(t, err)

	authCfg := testAuthConfig()
	sm, err := auth.NewSessionManager(sqlDB, authCfg)
	require.NoError(t, err)

	fetcher, err := covers.NewFetcher(config.Covers{
		Dir:     filepath.Join(dir, "images"),
		BaseURL: "http://covers.invalid/b/isbn",
	}, logger)
	require.NoError(t, err)

	bookRepo := books.NewRepository(db.DB)
	sched := &recordingScheduler{}
	authService := auth.NewService(users.NewRepository(db.DB), authCfg, logger)

	cfg := RouterConfig{
		Catalog:        catalog.NewService(bookRepo, sched, logger),
		Database:       db,
		Logger:         logger,
		AuthService:    authService,
		SessionManager: sm,
		AuthConfig:     authCfg,
		CoverFetcher:   fetcher,
		TemplatesPath:  filepath.Join("..", "..", "templates"),
		StaticPath:     filepath.Join("..", "..", "static"),
		Version:        "test",
	}
	for _, m := range mutate {
		m(&cfg)
	}

	router, stop := NewRouter(cfg)
	t.Cleanup(stop)

	return &testApp{
		db:     db,
		books:  bookRepo,
		auth:   authService,
		covers: fetcher,
		sched:  sched,
		router: router,
	}
}

func (a *testApp) addBook(t *testing.T, title, isbn, dateRead string, score int, note string) uint {
	t.Helper()
	d, err := time.Parse(entities.DateLayout, dateRead)
	require.NoError(t, err)

	book := &entities.Book{Title: title, Author: "Author of " + title, ISBN: isbn, DateRead: d, Score: score}
	require.NoError(t, a.books.CreateBookWithNote(context.Background(), book, note))
	return book.ID
}

// loggedInClient registers the test user and logs in through the login form.
func (a *testApp) loggedInClient(t *testing.T) *client {
	t.Helper()
	_, err := a.auth.Register(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	cl := newClient(a.router)
	rr := cl.postForm("/login", url.Values{"email": {testEmail}, "password": {testPassword}})
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/admin", rr.Header().Get("Location"))
	return cl
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

var csrfFieldPattern = regexp.MustCompile(`name="` + regexp.QuoteMeta(auth.CSRFFieldName) + `" value="([^"]+)"`)

// formToken loads the page at path and returns the CSRF token of its form.
func (cl *client) formToken(t *testing.T, path string) string {
	t.Helper()
	rr := cl.get(path)
	require.Equal(t, http.StatusOK, rr.Code, path)

	match := csrfFieldPattern.FindStringSubmatch(rr.Body.String())
	require.Len(t, match, 2, "no CSRF token on %s", path)
	return html.UnescapeString(match[1])
}

// submitForm posts a form the way a browser does from a page at from.
func (cl *client) submitForm(t *testing.T, from, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	form.Set(auth.CSRFFieldName, cl.formToken(t, from))

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "http://"+req.Host)
	req.Header.Set("Referer", "http://"+req.Host+from)
	return cl.do(req)
}

func formValues(title, dateRead, score string) url.Values {
	return url.Values{
		"title":      {title},
		"author":     {"Someone"},
		"isbn":       {"978-0-306-40615-7"},
		"dateRead":   {dateRead},
		"score":      {score},
		"bookReview": {"A review"},
		"bookNote":   {"first line\nsecond line"},
	}
}
