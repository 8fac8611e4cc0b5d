package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/readshelf/internal/config"
	"github.com/mrlokans/readshelf/internal/dispatch"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/mrlokans/readshelf/internal/library"
	"github.com/pkg/errors"
)

var quoteActions = []string{"list", "add", "delete"}

// QuotesCommand manages quotes saved from books.
type QuotesCommand struct {
	Action    string
	BookID    string
	ID        string
	Text      string
	StartPage int
	EndPage   int

	Config *config.Config
	Out    io.Writer
}

func NewQuotesCommand() *QuotesCommand {
	return &QuotesCommand{}
}

func (cmd *QuotesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("quotes", flag.ExitOnError)
	fs.StringVar(&cmd.BookID, "book", "", "Book id (list, add)")
	fs.StringVar(&cmd.ID, "id", "", "Quote id (delete)")
	fs.StringVar(&cmd.Text, "text", "", "Quote text (add)")
	fs.IntVar(&cmd.StartPage, "start", 0, "First page of the quote")
	fs.IntVar(&cmd.EndPage, "end", 0, "Last page of the quote")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s quotes <%s> [options]\n\n", os.Args[0], joinActions(quoteActions))
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	action, rest, err := splitAction(args, quoteActions)
	if err != nil {
		fs.Usage()
		return err
	}
	cmd.Action = action

	if err := fs.Parse(rest); err != nil {
		return err
	}

	switch cmd.Action {
	case "list", "add":
		if cmd.BookID == "" {
			return errors.Errorf("quotes %s: required flag -book not provided", cmd.Action)
		}
	case "delete":
		if cmd.ID == "" {
			return errors.New("quotes delete: required flag -id not provided")
		}
	}
	return nil
}

func (cmd *QuotesCommand) Run() error {
	rt, err := openRuntime(cmd.Config)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	out := stdout(cmd.Out)

	switch cmd.Action {
	case "list":
		quotes, err := await(ctx, rt, func(cb dispatch.Callback[[]entities.Quote]) {
			rt.library.ListQuotes(ctx, cmd.BookID, cb)
		})
		if err != nil {
			return err
		}
		if len(quotes) == 0 {
			fmt.Fprintln(out, "No quotes.")
		}
		for _, q := range quotes {
			fmt.Fprintf(out, "%s  p.%d-%d  %q\n", q.ID, q.StartPage, q.EndPage, q.Text)
		}

	case "add":
		quote, err := await(ctx, rt, func(cb dispatch.Callback[*entities.Quote]) {
			rt.library.AddQuote(ctx, library.NewQuote{
				BookID:    cmd.BookID,
				Text:      cmd.Text,
				StartPage: cmd.StartPage,
				EndPage:   cmd.EndPage,
			}, cb)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved quote %s\n", quote.ID)

	case "delete":
		_, err := await(ctx, rt, func(cb dispatch.Callback[struct{}]) {
			rt.library.DeleteQuote(ctx, cmd.ID, cb)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted quote %s\n", cmd.ID)
	}
	return nil
}
