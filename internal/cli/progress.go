package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/readshelf/internal/config"
	"github.com/mrlokans/readshelf/internal/dispatch"
	"github.com/mrlokans/readshelf/internal/library"
	"github.com/mrlokans/readshelf/internal/tasks"
	"github.com/pkg/errors"
)

// ProgressCommand records the current page of a book.
type ProgressCommand struct {
	BookID string
	Page   int
	Defer  bool

	Config *config.Config
	Out    io.Writer
}

func NewProgressCommand() *ProgressCommand {
	return &ProgressCommand{}
}

func (cmd *ProgressCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("progress", flag.ExitOnError)
	fs.StringVar(&cmd.BookID, "book", "", "Book id (required)")
	fs.IntVar(&cmd.Page, "page", -1, "Current page (required)")
	fs.BoolVar(&cmd.Defer, "defer", false, "Queue the write for the worker instead of sending it now")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s progress -book <id> -page <n> [-defer]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Write the current page and read it back to confirm it was stored.\n")
		fmt.Fprintf(os.Stderr, "With -defer the write is queued locally and sent by '%s worker'.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.BookID == "" {
		return errors.New("required flag -book not provided")
	}
	if cmd.Page < 0 {
		return errors.New("required flag -page not provided")
	}
	return nil
}

func (cmd *ProgressCommand) Run() error {
	if cmd.Defer {
		return cmd.enqueue()
	}

	rt, err := openRuntime(cmd.Config)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	result, err := await(ctx, rt, func(cb dispatch.Callback[*library.ProgressResult]) {
		rt.library.UpdateCurrentPage(ctx, cmd.BookID, cmd.Page, cb)
	})
	if err != nil {
		return err
	}

	out := stdout(cmd.Out)
	switch result.Outcome {
	case library.OutcomeConfirmed:
		fmt.Fprintf(out, "Book %s is at page %d\n", result.BookID, result.Page)
	case library.OutcomeRetried:
		fmt.Fprintf(out, "Book %s is at page %d (written twice after a mismatched read back)\n", result.BookID, result.Page)
	default:
		fmt.Fprintf(out, "Book %s page %d sent, but the read back failed\n", result.BookID, result.Page)
	}
	return nil
}

func (cmd *ProgressCommand) enqueue() error {
	cfg := loadConfig(cmd.Config)

	client, err := tasks.NewClient(cfg.Session.DatabasePath, tasks.ConfigFrom(cfg.Tasks))
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.EnqueueProgress(cmd.BookID, cmd.Page)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd.Out), "Queued page %d of book %s (task %s)\n", cmd.Page, cmd.BookID, id)
	return nil
}
