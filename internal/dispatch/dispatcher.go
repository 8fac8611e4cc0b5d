// Package dispatch runs operations on a fixed pool of workers and hands their
// results to a single delivery goroutine.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// DefaultWorkers is the pool size used when Config.Workers is not positive.
const DefaultWorkers = 4

var (
	ErrClosed    = errors.New("dispatcher is shut down")
	ErrQueueFull = errors.New("dispatch queue is full")
)

// Task is a unit of work. ctx is cancelled only when Shutdown gives up waiting.
type Task func(ctx context.Context)

// Config sizes the pool.
type Config struct {
	Workers int
	// QueueLimit caps pending tasks; 0 means unbounded
	QueueLimit int
	// Logger defaults to logger.New()
	Logger *logger.Logger
}

// Dispatcher executes submitted tasks on Workers goroutines. Tasks are
// independent and run in no particular order relative to each other.
type Dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Task
	closed bool

	limit   int
	deliver Deliverer
	log     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts the workers. Results of Run are posted to deliver.
func New(cfg Config, deliver Deliverer) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	log := logger.New()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	ctx, cancel := context.WithCancel(log.WithContext(context.Background()))
	d := &Dispatcher{
		limit:   cfg.QueueLimit,
		deliver: deliver,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	d.cond = sync.NewCond(&d.mu)

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work(i)
	}
	return d
}

// Submit enqueues a task.
func (d *Dispatcher) Submit(task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.limit > 0 && len(d.queue) >= d.limit {
		return ErrQueueFull
	}
	d.queue = append(d.queue, task)
	d.cond.Signal()
	return nil
}

// Pending returns the number of queued tasks not yet picked up by a worker.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Shutdown stops accepting tasks and waits until queued and running tasks
// finish. If ctx expires first, running tasks see their context cancelled and
// ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return errors.Wrap(ctx.Err(), "dispatcher shutdown")
	}
}

func (d *Dispatcher) next() (Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.queue) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.queue) == 0 {
		return nil, false
	}

	task := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return task, true
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()

	for {
		task, ok := d.next()
		if !ok {
			return
		}
		if err := runTask(d.ctx, task); err != nil {
			d.log.Err(err).Error("dispatch task failed", logger.Data{"worker": id})
		}
	}
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	task(ctx)
	return nil
}

func panicError(r any) error {
	return errors.New(fmt.Sprintf("task panicked: %v\n%s", r, debug.Stack()))
}
