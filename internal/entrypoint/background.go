package entrypoint

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/readshelf/internal/scheduler"
	"github.com/mrlokans/readshelf/internal/tasks"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// Background is the deferred progress worker plus the session refresh
// scheduler. Both act on behalf of the stored session.
type Background struct {
	Tasks     *tasks.Client
	Scheduler *scheduler.SessionRefreshScheduler
	cancel    context.CancelFunc
}

// StartBackground opens the task database, registers the progress queue and
// starts processing.
func StartBackground(ctx context.Context, c *Components) (*Background, error) {
	cfg := c.Config

	client, err := tasks.NewClient(cfg.Session.DatabasePath, tasks.ConfigFrom(cfg.Tasks))
	if err != nil {
		return nil, errors.Wrap(err, "create task client")
	}

	svc := c.Library(c.StoredTokens())
	client.Register(tasks.NewSyncProgressQueue(svc, tasks.ConfigFrom(cfg.Tasks)))

	refresher := scheduler.NewSessionRefreshScheduler(c.Sessions, c.GoTrue, cfg.Session.RefreshSchedule, cfg.Session.RefreshMargin)

	ctx, cancel := context.WithCancel(ctx)
	if err := refresher.Start(ctx); err != nil {
		cancel()
		client.Close()
		return nil, err
	}
	go client.Start(ctx)

	return &Background{Tasks: client, Scheduler: refresher, cancel: cancel}, nil
}

// Stop halts the scheduler, waits for running tasks and closes the task database.
func (b *Background) Stop(ctx context.Context) {
	log := logger.New()

	b.Scheduler.Stop()
	if !b.Tasks.Stop(ctx) {
		log.Warn("task queue did not drain before shutdown timeout")
	}
	b.cancel()
	if err := b.Tasks.Close(); err != nil {
		log.Err(err).Warn("close task database")
	}
}

// RunWorker processes deferred progress writes and refreshes sessions until
// SIGINT/SIGTERM.
func RunWorker(c *Components) error {
	background, err := StartBackground(context.Background(), c)
	if err != nil {
		return err
	}
	logger.New().Info("worker started", logger.Data{"schedule": c.Config.Session.RefreshSchedule})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), c.Config.ShutdownTimeout())
	defer cancel()
	background.Stop(ctx)
	return nil
}
