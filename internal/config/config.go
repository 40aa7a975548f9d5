package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		UI
		Covers
		Tasks
		CoverSweep
		Auth
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Covers struct {
		Dir         string        // Directory holding {isbn}-{size}.jpg files
		BaseURL     string        // Image service base, ISBN and size are appended
		Size        string        // OpenLibrary size suffix: S, M or L
		Timeout     time.Duration // Per-request HTTP timeout
		Concurrency int           // Max in-flight fetches when running without the task queue
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	CoverSweep struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Auth struct {
		SessionSecret       string
		SessionLifetime     time.Duration // Absolute lifetime from login
		BcryptCost          int
		SecureCookies       bool // Set to false for local dev without HTTPS
		RegistrationEnabled bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Log struct {
		Level      string
		File       string // Empty disables the rotating file sink
		MaxSize    int    // megabytes
		MaxBackups int
		MaxAge     int // days
		Compress   bool
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 3000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")

	// Cover cache defaults
	v.SetDefault("covers_dir", DefaultCoversDir)
	v.SetDefault("covers_base_url", DefaultCoversBaseURL)
	v.SetDefault("covers_size", "M")
	v.SetDefault("covers_timeout", "30s")
	v.SetDefault("covers_concurrency", 4)

	// Task queue defaults
	v.SetDefault("tasks_enabled", false)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "5m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("cover_sweep_enabled", false)
	v.SetDefault("cover_sweep_schedule", "0 3 * * *")

	// Auth defaults
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_bcrypt_cost", 10)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", false)   // HTTPS-only cookies
	v.SetDefault("auth_registration_enabled", true)
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_file_max_size", 10)
	v.SetDefault("log_file_max_backups", 3)
	v.SetDefault("log_file_max_age", 28)
	v.SetDefault("log_compress", false)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Covers: Covers{
			Dir:         v.GetString("COVERS_DIR"),
			BaseURL:     v.GetString("COVERS_BASE_URL"),
			Size:        v.GetString("COVERS_SIZE"),
			Timeout:     v.GetDuration("COVERS_TIMEOUT"),
			Concurrency: v.GetInt("COVERS_CONCURRENCY"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		CoverSweep: CoverSweep{
			Enabled:  v.GetBool("COVER_SWEEP_ENABLED"),
			Schedule: v.GetString("COVER_SWEEP_SCHEDULE"),
		},
		Auth: Auth{
			SessionSecret:       v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:     v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:          v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:       v.GetBool("AUTH_SECURE_COOKIES"),
			RegistrationEnabled: v.GetBool("AUTH_REGISTRATION_ENABLED"),
			MaxLoginAttempts:    v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:     v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:     v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Log: Log{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSize:    v.GetInt("LOG_FILE_MAX_SIZE"),
			MaxBackups: v.GetInt("LOG_FILE_MAX_BACKUPS"),
			MaxAge:     v.GetInt("LOG_FILE_MAX_AGE"),
			Compress:   v.GetBool("LOG_COMPRESS"),
		},
	}
}
