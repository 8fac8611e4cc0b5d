// Package tasks keeps deferred work in a persistent backlite queue so it
// survives restarts and is retried with backoff.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// Client wraps backlite with a dedicated SQLite database.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config
	log    logger.Logger

	mu      sync.RWMutex
	started bool
}

// DBPath returns the task database path for a main database path:
// "./readshelf.db" becomes "./readshelf-tasks.db".
func DBPath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+"-tasks"+ext)
}

// NewClient opens the task database next to mainDBPath and installs the
// backlite schema.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	db, err := sql.Open("sqlite3", DBPath(mainDBPath)+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "open tasks database")
	}

	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	log := logger.New()
	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{log: log},
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create backlite client")
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "install backlite schema")
	}

	return &Client{
		client: client,
		db:     db,
		config: cfg,
		log:    log,
	}, nil
}

// Register adds queues. Must be called before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start begins processing tasks and returns immediately.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.log.Info("task queue started", logger.Data{"workers": c.config.Workers})
	c.client.Start(ctx)
}

// Stop waits for running tasks. It reports false when ctx expired first.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	if !c.started {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	success := c.client.Stop(ctx)
	if success {
		c.log.Info("task queue stopped")
	} else {
		c.log.Warn("task queue stopped before all tasks completed")
	}
	return success
}

// Close releases the database. Call after Stop.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// queueLogger routes backlite's key/value log calls to the structured logger.
type queueLogger struct {
	log logger.Logger
}

func (l queueLogger) Info(message string, params ...any) {
	l.log.Info(message, fields(params))
}

func (l queueLogger) Error(message string, params ...any) {
	l.log.Error(message, fields(params))
}

func fields(params []any) logger.Data {
	data := logger.Data{"component": "tasks"}
	for i := 0; i+1 < len(params); i += 2 {
		data[fmt.Sprint(params[i])] = params[i+1]
	}
	if len(params)%2 == 1 {
		data["extra"] = params[len(params)-1]
	}
	return data
}
