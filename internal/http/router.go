package http

import (
	"html/template"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// The returned function releases background resources held by the handlers.
func NewRouter(cfg RouterConfig) (*gin.Engine, func()) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}

	router.Use(cfg.SessionManager.SessionLoadSave(logger))

	authMiddleware := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager, logger)
	router.Use(authMiddleware.Handler())

	// Inject auth data for templates
	router.Use(AuthContextMiddleware())

	funcMap := template.FuncMap{
		"coverURL": func(isbn string) string {
			if cfg.CoverFetcher == nil {
				return ""
			}
			name := cfg.CoverFetcher.FileName(isbn)
			if name == "" {
				return ""
			}
			return "/images/" + name
		},
	}

	tmpl := template.Must(template.New("").Funcs(funcMap).ParseGlob(filepath.Join(cfg.TemplatesPath, "*.html")))
	router.SetHTMLTemplate(tmpl)

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}
	if cfg.CoverFetcher != nil {
		router.Static("/images", cfg.CoverFetcher.Dir())
	}

	// Health check is registered before /:id so it is never read as a book id
	var pinger Pinger
	if cfg.Database != nil {
		pinger = cfg.Database
	}
	healthController := NewHealthController(pinger, cfg.Version)
	router.GET("/health", healthController.Status)

	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.TemplatesPath, cfg.AuthConfig, logger)
	authController.RegisterRoutes(router)

	booksController := NewBooksController(cfg.Catalog, logger)
	router.GET("/", booksController.List(catalog.SortScore))
	router.GET("/newest", booksController.List(catalog.SortNewest))
	router.GET("/title", booksController.List(catalog.SortTitle))

	admin := router.Group("/")
	admin.Use(authMiddleware.RequireAuth())
	{
		admin.GET("/admin", booksController.AdminPage)
		admin.POST("/add", booksController.AddBook)
		admin.GET("/admin/edit/:id", booksController.EditPage)
		admin.POST("/admin/edit/:id", booksController.EditBook)
		admin.GET("/admin/delete/:id", booksController.DeleteBook)

		if cfg.TaskClient != nil {
			tasksController := NewTasksController(cfg.TaskClient, logger)
			admin.GET("/admin/tasks/:id", tasksController.GetTaskStatus)
		}
	}

	router.GET("/:id", booksController.BookPage)

	router.NoRoute(respondNotFound)

	return router, authController.Stop
}
