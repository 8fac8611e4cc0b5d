package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/mrlokans/readshelf/internal/library"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const SyncProgressQueue = "sync_progress"

// backlite reads queue settings from the task type, so they live at package
// level and are set once by NewSyncProgressQueue.
var (
	syncProgressMu     sync.RWMutex
	syncProgressConfig = queueConfig(DefaultConfig())
)

func queueConfig(cfg Config) backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        SyncProgressQueue,
		MaxAttempts: cfg.MaxRetries,
		Backoff:     cfg.RetryDelay,
		Timeout:     cfg.TaskTimeout,
		Retention: &backlite.Retention{
			Duration:   cfg.RetentionDuration,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SyncProgressTask writes a reading position that could not be sent right away.
type SyncProgressTask struct {
	BookID     string    `json:"book_id"`
	Page       int       `json:"page"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Config returns the queue configuration for deferred progress writes.
func (t SyncProgressTask) Config() backlite.QueueConfig {
	syncProgressMu.RLock()
	defer syncProgressMu.RUnlock()
	return syncProgressConfig
}

// ProgressUpdater performs the page write. *library.Service implements it.
type ProgressUpdater interface {
	UpdateCurrentPage(ctx context.Context, bookID string, page int) (*library.ProgressResult, error)
}

// SyncProgressProcessor returns the processor for SyncProgressTask. Input the
// backend can never accept is dropped instead of retried.
func SyncProgressProcessor(updater ProgressUpdater) backlite.QueueProcessor[SyncProgressTask] {
	return func(ctx context.Context, task SyncProgressTask) error {
		log := logger.FromContext(ctx).Root(logger.Data{"book_id": task.BookID, "page": task.Page})
		if updater == nil {
			return errors.New("progress updater not configured")
		}

		result, err := updater.UpdateCurrentPage(ctx, task.BookID, task.Page)
		switch {
		case errors.Is(err, library.ErrInvalidInput), errors.Is(err, library.ErrNotFound):
			log.Err(err).Warn("dropping deferred progress")
			return nil
		case err != nil:
			return errors.Wrapf(err, "sync progress of book %s", task.BookID)
		}

		log.Info("deferred progress synced", logger.Data{
			"outcome":     result.Outcome,
			"recorded_at": task.RecordedAt,
		})
		return nil
	}
}

// NewSyncProgressQueue creates the backlite queue for deferred progress writes.
func NewSyncProgressQueue(updater ProgressUpdater, cfg Config) backlite.Queue {
	syncProgressMu.Lock()
	syncProgressConfig = queueConfig(cfg)
	syncProgressMu.Unlock()

	return backlite.NewQueue(SyncProgressProcessor(updater))
}

// EnqueueProgress stores a progress write for later delivery and returns its task id.
func (c *Client) EnqueueProgress(bookID string, page int) (string, error) {
	if bookID == "" || page < 0 {
		return "", errors.Wrap(library.ErrInvalidInput, "book id and a non-negative page are required")
	}

	ids, err := c.Add(SyncProgressTask{BookID: bookID, Page: page, RecordedAt: time.Now().UTC()}).Save()
	if err != nil {
		return "", errors.Wrap(err, "enqueue progress")
	}
	return ids[0], nil
}
