package dispatch

import "context"

// Callback receives the outcome of an operation on the delivery goroutine.
// Either handler may be nil.
type Callback[T any] struct {
	OnSuccess func(T)
	OnError   func(error)
}

func (cb Callback[T]) complete(value T, err error) {
	if err != nil {
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}
	if cb.OnSuccess != nil {
		cb.OnSuccess(value)
	}
}

// Run executes op on a worker and posts its result to the dispatcher's
// Deliverer. Callbacks never run on a worker, including when the task cannot
// be submitted or op panics.
func Run[T any](d *Dispatcher, op func(ctx context.Context) (T, error), cb Callback[T]) {
	err := d.Submit(func(ctx context.Context) {
		value, err := call(ctx, op)
		d.deliver.Post(func() { cb.complete(value, err) })
	})
	if err != nil {
		var zero T
		d.deliver.Post(func() { cb.complete(zero, err) })
	}
}

// Do is Run for operations without a result value.
func Do(d *Dispatcher, op func(ctx context.Context) error, cb Callback[struct{}]) {
	Run(d, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, cb)
}

func call[T any](ctx context.Context, op func(context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return op(ctx)
}
