package tasks

import (
	"time"

	"github.com/mrlokans/readshelf/internal/config"
)

// Config holds configuration for the task queue system.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// MaxRetries is the maximum attempts for a deferred progress write. Default: 5
	MaxRetries int

	// RetryDelay is the backoff between attempts. Default: 30s
	RetryDelay time.Duration

	// TaskTimeout bounds a single attempt. Default: 1m
	TaskTimeout time.Duration

	// ReleaseAfter is when stuck tasks are released back to queue. Default: 5m
	ReleaseAfter time.Duration

	// CleanupInterval is how often to clean up completed tasks. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long to keep completed tasks. Default: 24h
	RetentionDuration time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        5,
		RetryDelay:        30 * time.Second,
		TaskTimeout:       time.Minute,
		ReleaseAfter:      5 * time.Minute,
		CleanupInterval:   time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}

// ConfigFrom builds a Config from application settings, keeping defaults for
// unset values.
func ConfigFrom(s config.Tasks) Config {
	cfg := DefaultConfig()
	if s.Workers > 0 {
		cfg.Workers = s.Workers
	}
	if s.MaxRetries > 0 {
		cfg.MaxRetries = s.MaxRetries
	}
	if s.RetryDelay > 0 {
		cfg.RetryDelay = s.RetryDelay
	}
	if s.TaskTimeout > 0 {
		cfg.TaskTimeout = s.TaskTimeout
	}
	if s.ReleaseAfter > 0 {
		cfg.ReleaseAfter = s.ReleaseAfter
	}
	if s.CleanupInterval > 0 {
		cfg.CleanupInterval = s.CleanupInterval
	}
	if s.RetentionDuration > 0 {
		cfg.RetentionDuration = s.RetentionDuration
	}
	return cfg
}
