package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/users"
	"github.com/mrlokans/bookshelf/internal/entities"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App holds the components shared by every command.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *database.Database
	Books  *books.Repository
	Covers *covers.Fetcher
	Auth   *auth.Service
}

// NewApp opens the database and builds the stores and services on top of it.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	fetcher, err := covers.NewFetcher(cfg.Covers, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cover fetcher: %w", err)
	}

	return &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Books:  books.NewRepository(db.DB),
		Covers: fetcher,
		Auth:   auth.NewService(users.NewRepository(db.DB), cfg.Auth, logger),
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// CreateAdmin registers an administrator account.
func (a *App) CreateAdmin(ctx context.Context, email, password string) (*entities.User, error) {
	return a.Auth.Register(ctx, email, password)
}

// FetchCovers downloads every missing cover of the catalog and returns when done.
func (a *App) FetchCovers(ctx context.Context) (scheduler.SweepResult, error) {
	return scheduler.NewCoverSweepScheduler(a.Books, a.Covers, a.Logger).Sweep(ctx)
}

// Serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// gracefully.
func Serve(router http.Handler, cfg *config.Config, logger *zap.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Info("Shutting down server", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Background work stops first so nothing writes after the server is gone
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}

// Run wires the application and serves it until shutdown.
func Run(cfg *config.Config, version string, logger *zap.Logger) error {
	logger.Info("Starting Bookshelf", zap.String("version", version))

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Error closing database", zap.Error(err))
		}
	}()

	var (
		coverScheduler catalog.CoverScheduler
		asyncCovers    *covers.AsyncScheduler
		taskClient     *tasks.Client
		taskCtxCancel  context.CancelFunc
	)
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks), logger)
		if err != nil {
			return fmt.Errorf("initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error("Error closing task client", zap.Error(err))
			}
		}()

		taskClient.Register(tasks.NewFetchCoverQueue(app.Covers))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		coverScheduler = tasks.NewCoverScheduler(taskClient, app.Covers, logger)
	} else {
		asyncCovers = covers.NewAsyncScheduler(app.Covers, cfg.Covers.Concurrency)
		coverScheduler = asyncCovers
	}

	sqlDB, err := app.DB.SQLDB()
	if err != nil {
		return fmt.Errorf("get SQL DB for sessions: %w", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		return fmt.Errorf("initialize session manager: %w", err)
	}

	csrfSecret, err := loadCSRFSecret(cfg.Auth, logger)
	if err != nil {
		return err
	}

	hasUsers, err := app.Auth.HasUsers(context.Background())
	if err != nil {
		logger.Warn("Could not count users", zap.Error(err))
	} else if !hasUsers {
		logger.Info("No users found. Register at /register or run 'bookshelf create-admin'.")
	}

	var sweep *scheduler.CoverSweepScheduler
	if cfg.CoverSweep.Enabled {
		sweep = scheduler.NewCoverSweepScheduler(app.Books, app.Covers, logger)
		if err := sweep.Start(context.Background(), cfg.CoverSweep.Schedule); err != nil {
			return err
		}
	}

	router, stopRouter := http_controllers.NewRouter(http_controllers.RouterConfig{
		Catalog:        catalog.NewService(app.Books, coverScheduler, logger),
		Database:       app.DB,
		Logger:         logger,
		AuthService:    app.Auth,
		SessionManager: sessionManager,
		AuthConfig:     cfg.Auth,
		CSRFSecret:     csrfSecret,
		CoverFetcher:   app.Covers,
		TemplatesPath:  cfg.UI.TemplatesPath,
		StaticPath:     cfg.UI.StaticPath,
		TaskClient:     taskClient,
		Version:        version,
	})

	onShutdown := func(ctx context.Context) {
		if sweep != nil {
			sweep.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
		if asyncCovers != nil {
			if err := asyncCovers.Stop(ctx); err != nil {
				logger.Warn("Cover downloads still running at shutdown", zap.Error(err))
			}
		}
		stopRouter()
	}

	return Serve(router, cfg, logger, onShutdown)
}

// loadCSRFSecret decodes the configured secret, or generates one for this
// process when none is set.
func loadCSRFSecret(cfg config.Auth, logger *zap.Logger) ([]byte, error) {
	if cfg.SessionSecret != "" {
		secret, err := hex.DecodeString(cfg.SessionSecret)
		if err != nil {
			// Not hex, use as raw bytes
			return []byte(cfg.SessionSecret), nil
		}
		return secret, nil
	}

	secret, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, fmt.Errorf("generate CSRF secret: %w", err)
	}
	logger.Info("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	return hex.DecodeString(secret)
}
