package entrypoint

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mrlokans/readshelf/internal/auth"
	"github.com/mrlokans/readshelf/internal/config"
	gateway "github.com/mrlokans/readshelf/internal/http"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the router until SIGINT/SIGTERM, then shuts down within the
// configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	log := logger.New()
	timeout := cfg.ShutdownTimeout()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		log.Info("starting server", logger.Data{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-listenErr:
		return errors.Wrap(err, "listen")
	case <-quit:
	}
	log.Info("shutting down server", logger.Data{"timeout": timeout.String()})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Background work stops first so it does not outlive the listener.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	log.Info("server exiting")
	return nil
}

// Run starts the gateway. When the task queue is enabled the deferred
// progress worker and the session refresh scheduler run in the same process.
func Run(cfg *config.Config, version string) error {
	log := logger.New()
	log.Info("starting readshelf", logger.Data{"version": version})

	components, err := NewComponents(cfg)
	if err != nil {
		return err
	}
	defer components.Close()

	limiter := gateway.NewSignInLimiter(gateway.SignInLimits{})
	defer limiter.Close()

	svc := components.Library(auth.ContextTokenSource{})
	router := gateway.NewRouter(gateway.RouterConfig{
		Books:         svc,
		Quotes:        svc,
		Shelves:       svc,
		SignIn:        components.GoTrue,
		SignInLimiter: limiter,
		Backend:       components.GoTrue,
		Version:       version,
	})

	var background *Background
	if cfg.Tasks.Enabled {
		background, err = StartBackground(context.Background(), components)
		if err != nil {
			return err
		}
	}

	return Serve(router, cfg, func(ctx context.Context) {
		if background != nil {
			background.Stop(ctx)
		}
	})
}
