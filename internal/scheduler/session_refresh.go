// Package scheduler runs periodic background jobs on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mrlokans/readshelf/internal/auth"
	"github.com/mrlokans/readshelf/internal/tokenstore"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/robinjoseph08/golib/logger"
)

const (
	DefaultRefreshSchedule = "*/5 * * * *"
	DefaultRefreshMargin   = 10 * time.Minute
	refreshTimeout         = time.Minute
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a 5-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return errors.Wrapf(err, "invalid cron schedule %q", schedule)
}

// SessionRefreshScheduler refreshes stored sessions shortly before their
// access tokens expire, so deferred tasks and CLI calls find a valid token.
type SessionRefreshScheduler struct {
	store     *tokenstore.TokenStore
	refresher auth.Refresher
	schedule  string
	margin    time.Duration
	log       logger.Logger

	cron         *cron.Cron
	entryID      cron.EntryID
	mu           sync.RWMutex
	isRunning    bool
	isRefreshing bool
}

// NewSessionRefreshScheduler creates a scheduler. Empty schedule and
// non-positive margin fall back to defaults.
func NewSessionRefreshScheduler(store *tokenstore.TokenStore, refresher auth.Refresher, schedule string, margin time.Duration) *SessionRefreshScheduler {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	return &SessionRefreshScheduler{
		store:     store,
		refresher: refresher,
		schedule:  schedule,
		margin:    margin,
		log:       logger.New(),
		cron:      cron.New(cron.WithParser(cronParser)),
	}
}

// Start schedules the refresh job. It stops when ctx is cancelled.
func (s *SessionRefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunNow(ctx); err != nil {
			s.log.Err(err).Warn("scheduled session refresh failed")
		}
	})
	if err != nil {
		return errors.Wrapf(err, "schedule session refresh %q", s.schedule)
	}

	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	s.log.Info("session refresh scheduler started", logger.Data{
		"schedule": s.schedule,
		"margin":   s.margin.String(),
	})

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *SessionRefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.log.Info("session refresh scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *SessionRefreshScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns the next scheduled run, or nil when not running.
func (s *SessionRefreshScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			next := entry.Next
			return &next
		}
	}
	return nil
}

// RunNow refreshes every session that expires within the margin and returns
// how many were refreshed. Overlapping runs are skipped.
func (s *SessionRefreshScheduler) RunNow(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.isRefreshing {
		s.mu.Unlock()
		s.log.Info("session refresh already in progress, skipping")
		return 0, nil
	}
	s.isRefreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRefreshing = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	sessions, err := s.store.ListSessions()
	if err != nil {
		return 0, err
	}

	var refreshed int
	var failed []string
	for i := range sessions {
		stored := &sessions[i]
		if !stored.IsExpiringSoon(s.margin) {
			continue
		}
		if err := s.refresh(ctx, stored.Account); err != nil {
			s.log.Err(err).Warn("session refresh failed", logger.Data{"account": stored.Account})
			failed = append(failed, stored.Account)
			continue
		}
		refreshed++
	}

	if refreshed > 0 || len(failed) > 0 {
		s.log.Info("session refresh completed", logger.Data{
			"refreshed": refreshed,
			"failed":    len(failed),
		})
	}
	if len(failed) > 0 {
		return refreshed, errors.Errorf("refresh failed for %d session(s): %v", len(failed), failed)
	}
	return refreshed, nil
}

func (s *SessionRefreshScheduler) refresh(ctx context.Context, account string) error {
	session, err := s.store.GetSession(account)
	if err != nil {
		return err
	}
	if session.RefreshToken == "" {
		return auth.ErrNoRefreshToken
	}

	resp, err := s.refresher.Refresh(ctx, session.RefreshToken)
	if err != nil {
		return errors.Wrap(err, "refresh session")
	}
	return s.store.UpdateAfterRefresh(account, resp.AccessToken, resp.RefreshToken, resp.ExpiresAt())
}
