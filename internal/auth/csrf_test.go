package auth

import (
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCSRFSecret = []byte("test-secret-key-32-bytes-long!!!")

func TestCSRFMiddleware_AllowsGETAndIssuesToken(t *testing.T) {
	router := gin.New()
	router.Use(CSRFMiddleware(testCSRFSecret, false))
	router.GET("/form", func(c *gin.Context) {
		c.String(http.StatusOK, string(CSRFTokenField(c)))
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/form", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `name="`+CSRFFieldName+`"`)
}

func TestCSRFMiddleware_BlocksPOSTWithoutToken(t *testing.T) {
	handlerCalled := false
	router := gin.New()
	router.Use(CSRFMiddleware(testCSRFSecret, false))
	router.POST("/add", func(c *gin.Context) {
		handlerCalled = true
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader("title=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, handlerCalled, "handler must not run after a CSRF rejection")
}

func TestCSRFMiddleware_RedirectsBackToLocalReferer(t *testing.T) {
	router := gin.New()
	router.Use(CSRFMiddleware(testCSRFSecret, false))
	router.POST("/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("Referer", "http://example.com/login?next=%2Fadmin")
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login?error=expired&next=%2Fadmin", rr.Header().Get("Location"))
}

func TestCSRFTokenField_EmptyWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, CSRFTokenField(c))
}

var csrfInputPattern = regexp.MustCompile(`name="` + regexp.QuoteMeta(CSRFFieldName) + `" value="([^"]+)"`)

func csrfRouter(secure bool, handlerCalled *bool) *gin.Engine {
	router := gin.New()
	router.Use(CSRFMiddleware(testCSRFSecret, secure))
	router.GET("/form", func(c *gin.Context) {
		c.String(http.StatusOK, string(CSRFTokenField(c)))
	})
	router.POST("/add", func(c *gin.Context) {
		*handlerCalled = true
		c.Status(http.StatusOK)
	})
	return router
}

// issueToken fetches the form and returns its hidden token with the cookie
// the browser would store.
func issueToken(t *testing.T, router *gin.Engine) (string, []*http.Cookie) {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/form", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	match := csrfInputPattern.FindStringSubmatch(rr.Body.String())
	require.Len(t, match, 2, "form must carry a token")
	return html.UnescapeString(match[1]), rr.Result().Cookies()
}

func tokenPost(token string, cookies []*http.Cookie) *http.Request {
	form := url.Values{"title": {"x"}, CSRFFieldName: {token}}
	req := httptest.NewRequest(http.MethodPost, "/add", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	return req
}

func TestCSRFMiddleware_AcceptsTokenOverPlainHTTP(t *testing.T) {
	handlerCalled := false
	router := csrfRouter(false, &handlerCalled)
	token, cookies := issueToken(t, router)

	for _, headers := range []map[string]string{
		{"Origin": "http://example.com", "Referer": "http://example.com/form"},
		{"Referer": "http://example.com/form"},
		{},
	} {
		handlerCalled = false
		req := tokenPost(token, cookies)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "headers %v", headers)
		assert.True(t, handlerCalled, "headers %v", headers)
	}
}

func TestCSRFMiddleware_RejectsForeignOriginOverPlainHTTP(t *testing.T) {
	handlerCalled := false
	router := csrfRouter(false, &handlerCalled)
	token, cookies := issueToken(t, router)

	req := tokenPost(token, cookies)
	req.Header.Set("Origin", "http://evil.example.org")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, handlerCalled)
}

func TestCSRFMiddleware_SecureModeRequiresHTTPSReferer(t *testing.T) {
	handlerCalled := false
	router := csrfRouter(true, &handlerCalled)
	token, cookies := issueToken(t, router)

	req := tokenPost(token, cookies)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.False(t, handlerCalled)

	req = tokenPost(token, cookies)
	req.Header.Set("Referer", "https://example.com/form")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, handlerCalled)
}
