package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type ReconcileMode string

const (
	ReconcileBestEffort ReconcileMode = "best_effort" // Report success even when the page write cannot be confirmed (default)
	ReconcileStrict     ReconcileMode = "strict"      // Fail when the page write cannot be confirmed
)

type (
	Config struct {
		Backend
		HTTP
		Global
		Timeouts
		RateLimit
		Dispatch
		Library
		Session
		Tasks
	}

	Backend struct {
		URL     string // Base URL of the backend, e.g. https://xyz.supabase.co
		AnonKey string // Public API identifier sent as the apikey header
	}
	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Timeouts struct {
		Read   time.Duration // GET requests
		Write  time.Duration // POST/PATCH/DELETE with JSON bodies
		Upload time.Duration // Storage uploads
	}
	RateLimit struct {
		RequestsPerSecond float64 // 0 disables client-side limiting
		Burst             int
	}
	Dispatch struct {
		Workers    int // Concurrent workers for asynchronous operations (default: 4)
		QueueLimit int // Maximum queued operations, 0 = unbounded
	}
	Library struct {
		ReconcileMode ReconcileMode
		DefaultStatus string // Status label used when a book record has none
	}
	Session struct {
		DatabasePath    string
		Account         string // Account (email) used by the stored session token source
		EncryptionKey   string // Base64-encoded 32-byte key
		Passphrase      string // Alternative to EncryptionKey, turned into a key with Argon2id
		KeyFilePath     string
		RefreshMargin   time.Duration // Refresh tokens expiring within this duration
		RefreshSchedule string        // Cron format: "*/5 * * * *" = every 5 minutes
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("shutdown_timeout_in_seconds", 5)
	v.SetDefault("backend_url", "")
	v.SetDefault("backend_anon_key", "")

	// Timeouts per operation class
	v.SetDefault("timeout_read", "10s")
	v.SetDefault("timeout_write", "15s")
	v.SetDefault("timeout_upload", "60s")

	v.SetDefault("rate_limit_rps", 0)
	v.SetDefault("rate_limit_burst", 1)

	v.SetDefault("dispatch_workers", 4)
	v.SetDefault("dispatch_queue_limit", 0)

	v.SetDefault("reconcile_mode", string(ReconcileBestEffort))
	v.SetDefault("default_book_status", "planned")

	// Session defaults
	v.SetDefault("session_database_path", DefaultDatabasePath)
	v.SetDefault("session_account", "")
	v.SetDefault("session_encryption_key", "")
	v.SetDefault("session_passphrase", "")
	v.SetDefault("session_key_file", "")
	v.SetDefault("session_refresh_margin", "10m")
	v.SetDefault("session_refresh_schedule", "*/5 * * * *")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 5)
	v.SetDefault("task_retry_delay", "30s")
	v.SetDefault("task_timeout", "1m")
	v.SetDefault("task_release_after", "5m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	return &Config{
		Backend: Backend{
			URL:     strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
			AnonKey: v.GetString("BACKEND_ANON_KEY"),
		},
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Timeouts: Timeouts{
			Read:   v.GetDuration("TIMEOUT_READ"),
			Write:  v.GetDuration("TIMEOUT_WRITE"),
			Upload: v.GetDuration("TIMEOUT_UPLOAD"),
		},
		RateLimit: RateLimit{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		Dispatch: Dispatch{
			Workers:    v.GetInt("DISPATCH_WORKERS"),
			QueueLimit: v.GetInt("DISPATCH_QUEUE_LIMIT"),
		},
		Library: Library{
			ReconcileMode: ReconcileMode(v.GetString("RECONCILE_MODE")),
			DefaultStatus: v.GetString("DEFAULT_BOOK_STATUS"),
		},
		Session: Session{
			DatabasePath:    v.GetString("SESSION_DATABASE_PATH"),
			Account:         v.GetString("SESSION_ACCOUNT"),
			EncryptionKey:   v.GetString("SESSION_ENCRYPTION_KEY"),
			Passphrase:      v.GetString("SESSION_PASSPHRASE"),
			KeyFilePath:     v.GetString("SESSION_KEY_FILE"),
			RefreshMargin:   v.GetDuration("SESSION_REFRESH_MARGIN"),
			RefreshSchedule: v.GetString("SESSION_REFRESH_SCHEDULE"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
	}
}

// ErrMissingBackend is returned by Validate when the backend endpoint or key is not configured.
var ErrMissingBackend = errors.New("BACKEND_URL and BACKEND_ANON_KEY must be set")

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if c.Backend.URL == "" || c.Backend.AnonKey == "" {
		return ErrMissingBackend
	}
	switch c.Library.ReconcileMode {
	case ReconcileBestEffort, ReconcileStrict:
	default:
		return errors.Errorf("unknown RECONCILE_MODE %q (want %q or %q)",
			c.Library.ReconcileMode, ReconcileBestEffort, ReconcileStrict)
	}
	if c.Dispatch.Workers < 0 || c.Dispatch.QueueLimit < 0 {
		return errors.New("DISPATCH_WORKERS and DISPATCH_QUEUE_LIMIT must not be negative")
	}
	return nil
}

// ShutdownTimeout bounds graceful shutdown of the server and background work.
func (c *Config) ShutdownTimeout() time.Duration {
	if c.Global.ShutdownTimeoutInSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Global.ShutdownTimeoutInSeconds) * time.Second
}
