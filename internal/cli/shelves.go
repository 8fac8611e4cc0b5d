package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrlokans/readshelf/internal/config"
	"github.com/mrlokans/readshelf/internal/dispatch"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/mrlokans/readshelf/internal/library"
	"github.com/pkg/errors"
)

var shelfActions = []string{"list", "get", "create", "update", "delete", "add", "remove", "books"}

// ShelvesCommand manages shelves and the books placed on them.
type ShelvesCommand struct {
	Action      string
	ID          string
	BookID      string
	Name        string
	Description string

	set map[string]bool

	Config *config.Config
	Out    io.Writer
}

func NewShelvesCommand() *ShelvesCommand {
	return &ShelvesCommand{}
}

func (cmd *ShelvesCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("shelves", flag.ExitOnError)
	fs.StringVar(&cmd.ID, "id", "", "Shelf id")
	fs.StringVar(&cmd.BookID, "book", "", "Book id (add, remove)")
	fs.StringVar(&cmd.Name, "name", "", "Shelf name (create, update)")
	fs.StringVar(&cmd.Description, "description", "", "Shelf description (create, update)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s shelves <%s> [options]\n\n", os.Args[0], joinActions(shelfActions))
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s shelves create -name Favourites\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s shelves add -id <shelf id> -book <book id>\n", os.Args[0])
	}

	action, rest, err := splitAction(args, shelfActions)
	if err != nil {
		fs.Usage()
		return err
	}
	cmd.Action = action

	if err := fs.Parse(rest); err != nil {
		return err
	}
	cmd.set = visited(fs)

	switch cmd.Action {
	case "get", "update", "delete", "books":
		if cmd.ID == "" {
			return errors.Errorf("shelves %s: required flag -id not provided", cmd.Action)
		}
	case "add", "remove":
		if cmd.ID == "" || cmd.BookID == "" {
			return errors.Errorf("shelves %s: flags -id and -book are required", cmd.Action)
		}
	}
	return nil
}

func (cmd *ShelvesCommand) Run() error {
	rt, err := openRuntime(cmd.Config)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	out := stdout(cmd.Out)

	switch cmd.Action {
	case "list":
		shelves, err := await(ctx, rt, func(cb dispatch.Callback[[]entities.Shelf]) {
			rt.library.ListShelves(ctx, cb)
		})
		if err != nil {
			return err
		}
		if len(shelves) == 0 {
			fmt.Fprintln(out, "No shelves.")
		}
		for _, s := range shelves {
			fmt.Fprintf(out, "%s  %s (%d books)\n", s.ID, s.Name, len(s.BookIDs))
		}

	case "get":
		shelf, err := await(ctx, rt, func(cb dispatch.Callback[*entities.Shelf]) {
			rt.library.GetShelf(ctx, cmd.ID, cb)
		})
		if err != nil {
			return err
		}
		printShelf(out, shelf)

	case "create":
		shelf, err := await(ctx, rt, func(cb dispatch.Callback[*entities.Shelf]) {
			rt.library.CreateShelf(ctx, library.NewShelf{Name: cmd.Name, Description: cmd.Description}, cb)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created shelf %s\n", shelf.ID)

	case "update":
		var patch library.ShelfPatch
		if cmd.set["name"] {
			patch.Name = &cmd.Name
		}
		if cmd.set["description"] {
			patch.Description = &cmd.Description
		}
		shelf, err := await(ctx, rt, func(cb dispatch.Callback[*entities.Shelf]) {
			rt.library.UpdateShelf(ctx, cmd.ID, patch, cb)
		})
		if err != nil {
			return err
		}
		printShelf(out, shelf)

	case "delete":
		_, err := await(ctx, rt, func(cb dispatch.Callback[struct{}]) {
			rt.library.DeleteShelf(ctx, cmd.ID, cb)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted shelf %s\n", cmd.ID)

	case "add":
		_, err := await(ctx, rt, func(cb dispatch.Callback[struct{}]) {
			rt.library.AddBookToShelf(ctx, cmd.BookID, cmd.ID, cb)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Book %s is on shelf %s\n", cmd.BookID, cmd.ID)

	case "remove":
		_, err := await(ctx, rt, func(cb dispatch.Callback[struct{}]) {
			rt.library.RemoveBookFromShelf(ctx, cmd.BookID, cmd.ID, cb)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Book %s is off shelf %s\n", cmd.BookID, cmd.ID)

	case "books":
		books, err := await(ctx, rt, func(cb dispatch.Callback[[]entities.Book]) {
			rt.library.ListShelfBooks(ctx, cmd.ID, cb)
		})
		if err != nil {
			return err
		}
		printBooks(out, books)
	}
	return nil
}

func printShelf(out io.Writer, s *entities.Shelf) {
	fmt.Fprintf(out, "ID:          %s\n", s.ID)
	fmt.Fprintf(out, "Name:        %s\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", s.Description)
	}
	fmt.Fprintf(out, "Books:       %s\n", strings.Join(s.BookIDs, ", "))
}
