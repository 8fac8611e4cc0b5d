package dispatch

import (
	"context"
	"sync"

	"github.com/robinjoseph08/golib/logger"
)

// Deliverer runs posted closures on its designated goroutine.
type Deliverer interface {
	Post(fn func())
}

// Loop is a Deliverer that executes closures one at a time, in posting order,
// on whichever goroutine calls Run.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	notify  chan struct{}

	stopOnce sync.Once
	stop     chan struct{}

	log logger.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the logger for panicking callbacks. Defaults to logger.New().
func WithLoopLogger(log logger.Logger) LoopOption {
	return func(l *Loop) {
		l.log = log
	}
}

func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		log:    logger.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn. It never blocks.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Run executes posted closures until Stop is called or ctx is done. After
// Stop, closures already posted are still executed before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.pop()
			if !ok {
				break
			}
			l.invoke(fn)
		}

		select {
		case <-l.notify:
		case <-l.stop:
			if l.empty() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start() {
	go func() {
		_ = l.Run(context.Background())
	}()
}

// Stop makes Run return once the closures posted so far have run.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil, false
	}
	fn := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return fn, true
}

func (l *Loop) empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) == 0
}

// invoke keeps a panicking callback from taking the loop down.
func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Err(panicError(r)).Error("callback panicked")
		}
	}()
	fn()
}
