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
	"github.com/mrlokans/readshelf/internal/storage"
	"github.com/pkg/errors"
)

var bookActions = []string{"list", "get", "add", "create", "update", "pages", "delete"}

// BooksCommand manages the signed-in user's books.
type BooksCommand struct {
	Action      string
	ID          string
	Status      string
	Title       string
	Author      string
	Description string
	File        string
	Cover       string
	URL         string
	TotalPages  int
	Rating      float64

	set map[string]bool

	Config *config.Config
	Out    io.Writer
}

func NewBooksCommand() *BooksCommand {
	return &BooksCommand{}
}

func (cmd *BooksCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("books", flag.ExitOnError)
	fs.StringVar(&cmd.ID, "id", "", "Book id (get, update, pages, delete)")
	fs.StringVar(&cmd.Status, "status", "", "Status label (list filter, add, create, update)")
	fs.StringVar(&cmd.Title, "title", "", "Title (add, create, update)")
	fs.StringVar(&cmd.Author, "author", "", "Author")
	fs.StringVar(&cmd.Description, "description", "", "Description")
	fs.StringVar(&cmd.File, "file", "", "Local book file to upload (add)")
	fs.StringVar(&cmd.Cover, "cover", "", "Local cover image to upload (add)")
	fs.StringVar(&cmd.URL, "url", "", "URL of an already hosted book file (create)")
	fs.IntVar(&cmd.TotalPages, "pages", 0, "Total pages")
	fs.Float64Var(&cmd.Rating, "rating", 0, "Rating from 0 to 5")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s books <%s> [options]\n\n", os.Args[0], joinActions(bookActions))
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s books list -status reading\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s books add -file dune.epub -cover dune.jpg -title Dune -pages 412\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s books pages -id <id> -pages 420\n", os.Args[0])
	}

	action, rest, err := splitAction(args, bookActions)
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
	case "get", "update", "pages", "delete":
		if cmd.ID == "" {
			return errors.Errorf("books %s: required flag -id not provided", cmd.Action)
		}
	case "add":
		if cmd.File == "" {
			return errors.New("books add: required flag -file not provided")
		}
	}
	if cmd.Action == "pages" && !cmd.set["pages"] {
		return errors.New("books pages: required flag -pages not provided")
	}
	return nil
}

func (cmd *BooksCommand) Run() error {
	rt, err := openRuntime(cmd.Config)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	out := stdout(cmd.Out)

	switch cmd.Action {
	case "list":
		books, err := await(ctx, rt, func(cb dispatch.Callback[[]entities.Book]) {
			rt.library.ListBooks(ctx, cmd.Status, cb)
		})
		if err != nil {
			return err
		}
		printBooks(out, books)

	case "get":
		book, err := await(ctx, rt, func(cb dispatch.Callback[*entities.Book]) {
			rt.library.GetBook(ctx, cmd.ID, cb)
		})
		if err != nil {
			return err
		}
		printBook(out, book)

	case "add":
		return cmd.add(ctx, rt, out)

	case "create":
		book, err := await(ctx, rt, func(cb dispatch.Callback[*entities.Book]) {
			rt.library.CreateBook(ctx, cmd.newBook(), cb)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created book %s\n", book.ID)

	case "update":
		book, err := await(ctx, rt, func(cb dispatch.Callback[*entities.Book]) {
			rt.library.UpdateBook(ctx, cmd.ID, cmd.patch(), cb)
		})
		if err != nil {
			return err
		}
		printBook(out, book)

	case "pages":
		_, err := await(ctx, rt, func(cb dispatch.Callback[struct{}]) {
			rt.library.UpdateTotalPages(ctx, cmd.ID, cmd.TotalPages, cb)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Book %s now has %d pages\n", cmd.ID, cmd.TotalPages)

	case "delete":
		_, err := await(ctx, rt, func(cb dispatch.Callback[struct{}]) {
			rt.library.DeleteBook(ctx, cmd.ID, cb)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted book %s\n", cmd.ID)
	}
	return nil
}

func (cmd *BooksCommand) add(ctx context.Context, rt *runtime, out io.Writer) error {
	source := storage.LocalSource{}

	file, err := source.Open(ctx, cmd.File)
	if err != nil {
		return err
	}
	defer file.Close()

	var cover *library.Upload
	if cmd.Cover != "" {
		coverFile, err := source.Open(ctx, cmd.Cover)
		if err != nil {
			return err
		}
		defer coverFile.Close()
		cover = &library.Upload{Name: coverFile.Name, Body: coverFile}
	}

	book, err := await(ctx, rt, func(cb dispatch.Callback[*entities.Book]) {
		rt.library.AddBook(ctx, cmd.newBook(), library.Upload{Name: file.Name, Body: file}, cover, cb)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Added book %s (%s)\n", book.ID, book.FileFormat)
	fmt.Fprintf(out, "  File: %s\n", book.FileURL)
	if book.CoverPath != "" {
		fmt.Fprintf(out, "  Cover: %s\n", book.CoverPath)
	}
	return nil
}

func (cmd *BooksCommand) newBook() library.NewBook {
	return library.NewBook{
		Title:       cmd.Title,
		Author:      cmd.Author,
		Description: cmd.Description,
		TotalPages:  cmd.TotalPages,
		Status:      cmd.Status,
		Rating:      cmd.Rating,
		FileURL:     cmd.URL,
	}
}

// patch includes only the flags given on the command line.
func (cmd *BooksCommand) patch() library.BookPatch {
	var p library.BookPatch
	if cmd.set["title"] {
		p.Title = &cmd.Title
	}
	if cmd.set["author"] {
		p.Author = &cmd.Author
	}
	if cmd.set["description"] {
		p.Description = &cmd.Description
	}
	if cmd.set["status"] {
		p.Status = &cmd.Status
	}
	if cmd.set["pages"] {
		p.TotalPages = &cmd.TotalPages
	}
	if cmd.set["rating"] {
		p.Rating = &cmd.Rating
	}
	return p
}

func printBooks(out io.Writer, books []entities.Book) {
	if len(books) == 0 {
		fmt.Fprintln(out, "No books.")
		return
	}
	for _, b := range books {
		fmt.Fprintf(out, "%s  %-10s %3.0f%%  %s", b.ID, b.Status, b.Progress()*100, b.Title)
		if b.Author != "" {
			fmt.Fprintf(out, " by %s", b.Author)
		}
		fmt.Fprintln(out)
	}
}

func printBook(out io.Writer, b *entities.Book) {
	fmt.Fprintf(out, "ID:       %s\n", b.ID)
	fmt.Fprintf(out, "Title:    %s\n", b.Title)
	if b.Author != "" {
		fmt.Fprintf(out, "Author:   %s\n", b.Author)
	}
	fmt.Fprintf(out, "Status:   %s\n", b.Status)
	fmt.Fprintf(out, "Progress: %d/%d\n", b.CurrentPage, b.TotalPages)
	fmt.Fprintf(out, "Format:   %s\n", b.FileFormat)
	if b.FileURL != "" {
		fmt.Fprintf(out, "File:     %s\n", b.FileURL)
	}
}
