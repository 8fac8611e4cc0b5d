package http

import (
	"sync"
	"time"
)

// SignInLimiter locks out an IP+account pair after repeated failed sign-ins.
type SignInLimiter struct {
	mu       sync.Mutex
	failures map[string]*failureRecord
	max      int
	window   time.Duration
	lockout  time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type failureRecord struct {
	count       int
	first       time.Time
	lockedUntil time.Time
}

// SignInLimits configures a SignInLimiter. Zero values take the defaults.
type SignInLimits struct {
	MaxFailures     int           // default 5
	Window          time.Duration // default 15m
	Lockout         time.Duration // default 30m
	CleanupInterval time.Duration // default 5m
}

func NewSignInLimiter(limits SignInLimits) *SignInLimiter {
	if limits.MaxFailures <= 0 {
		limits.MaxFailures = 5
	}
	if limits.Window <= 0 {
		limits.Window = 15 * time.Minute
	}
	if limits.Lockout <= 0 {
		limits.Lockout = 30 * time.Minute
	}
	if limits.CleanupInterval <= 0 {
		limits.CleanupInterval = 5 * time.Minute
	}

	l := &SignInLimiter{
		failures: make(map[string]*failureRecord),
		max:      limits.MaxFailures,
		window:   limits.Window,
		lockout:  limits.Lockout,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(limits.CleanupInterval)
	return l
}

// Close stops the cleanup goroutine.
func (l *SignInLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func limiterKey(ip, account string) string {
	return ip + "|" + account
}

// Allow reports whether a sign-in may be attempted and, if not, for how long
// the pair stays locked.
func (l *SignInLimiter) Allow(ip, account string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.failures[limiterKey(ip, account)]
	if !ok {
		return true, 0
	}
	now := l.now()
	if now.Before(rec.lockedUntil) {
		return false, rec.lockedUntil.Sub(now)
	}
	return true, 0
}

// Fail records a failed attempt and reports whether it triggered a lockout.
func (l *SignInLimiter) Fail(ip, account string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := limiterKey(ip, account)
	now := l.now()
	rec, ok := l.failures[key]
	if !ok || now.Sub(rec.first) > l.window {
		rec = &failureRecord{first: now}
		l.failures[key] = rec
	}

	rec.count++
	if rec.count >= l.max {
		rec.lockedUntil = now.Add(l.lockout)
		return true
	}
	return false
}

// Succeed clears the failures of a pair.
func (l *SignInLimiter) Succeed(ip, account string) {
	l.mu.Lock()
	delete(l.failures, limiterKey(ip, account))
	l.mu.Unlock()
}

func (l *SignInLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

func (l *SignInLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, rec := range l.failures {
		if now.Sub(rec.first) > l.window && !now.Before(rec.lockedUntil) {
			delete(l.failures, key)
		}
	}
}
