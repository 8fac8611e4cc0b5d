package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/readshelf/internal/config"
	"github.com/mrlokans/readshelf/internal/entrypoint"
	"github.com/mrlokans/readshelf/internal/scheduler"
)

// WorkerCommand sends deferred progress writes and keeps stored sessions
// fresh until interrupted.
type WorkerCommand struct {
	Schedule string

	Config *config.Config
}

func NewWorkerCommand() *WorkerCommand {
	return &WorkerCommand{}
}

func (cmd *WorkerCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	fs.StringVar(&cmd.Schedule, "schedule", "", "Cron schedule for session refresh (default: $SESSION_REFRESH_SCHEDULE)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s worker [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Process queued progress writes and refresh stored sessions.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Schedule != "" {
		return scheduler.ValidateCronSchedule(cmd.Schedule)
	}
	return nil
}

func (cmd *WorkerCommand) Run() error {
	cfg := loadConfig(cmd.Config)
	if cmd.Schedule != "" {
		cfg.Session.RefreshSchedule = cmd.Schedule
	}

	components, err := entrypoint.NewComponents(cfg)
	if err != nil {
		return err
	}
	defer components.Close()

	return entrypoint.RunWorker(components)
}
