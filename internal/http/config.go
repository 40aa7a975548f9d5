package http

import (
	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Catalog  *catalog.Service
	Database *database.Database
	Logger   *zap.Logger

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	// CSRFSecret enables CSRF protection on every unsafe request when set.
	CSRFSecret []byte

	// Cover files served under /images
	CoverFetcher *covers.Fetcher

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}
