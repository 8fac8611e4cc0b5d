// Package cli implements the readshelf subcommands.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/mrlokans/readshelf/internal/config"
	"github.com/mrlokans/readshelf/internal/dispatch"
	"github.com/mrlokans/readshelf/internal/entrypoint"
	"github.com/mrlokans/readshelf/internal/library"
	"github.com/robinjoseph08/golib/logger"
)

// runtime wires one command run: operations execute on the dispatcher's
// workers and their callbacks run on the goroutine that calls await.
type runtime struct {
	components *entrypoint.Components
	loop       *dispatch.Loop
	dispatcher *dispatch.Dispatcher
	library    *library.AsyncService
}

func loadConfig(cfg *config.Config) *config.Config {
	if cfg != nil {
		return cfg
	}
	return config.NewConfig()
}

func openRuntime(cfg *config.Config) (*runtime, error) {
	components, err := entrypoint.NewComponents(loadConfig(cfg))
	if err != nil {
		return nil, err
	}

	log := logger.New().Root(logger.Data{"component": "cli"})
	loop := dispatch.NewLoop(dispatch.WithLoopLogger(log))
	d := dispatch.New(dispatch.Config{
		Workers:    components.Config.Dispatch.Workers,
		QueueLimit: components.Config.Dispatch.QueueLimit,
		Logger:     &log,
	}, loop)

	svc := components.Library(components.StoredTokens())
	return &runtime{
		components: components,
		loop:       loop,
		dispatcher: d,
		library:    library.NewAsyncService(svc, d),
	}, nil
}

func (r *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), r.components.Config.ShutdownTimeout())
	defer cancel()
	if err := r.dispatcher.Shutdown(ctx); err != nil {
		logger.New().Err(err).Warn("dispatcher shutdown")
	}
	if err := r.components.Close(); err != nil {
		logger.New().Err(err).Warn("close session store")
	}
}

// await starts one asynchronous operation and drives the delivery loop on
// the calling goroutine until its callback has run. The loop stops with the
// first outcome, so a runtime serves a single await.
func await[T any](ctx context.Context, r *runtime, start func(cb dispatch.Callback[T])) (T, error) {
	var (
		value T
		opErr error
	)
	start(dispatch.Callback[T]{
		OnSuccess: func(v T) {
			value = v
			r.loop.Stop()
		},
		OnError: func(err error) {
			opErr = err
			r.loop.Stop()
		},
	})

	if err := r.loop.Run(ctx); err != nil {
		return value, err
	}
	return value, opErr
}

func stdout(w io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return os.Stdout
}
