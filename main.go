package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/readshelf/internal/cli"
	"github.com/mrlokans/readshelf/internal/config"
	"github.com/mrlokans/readshelf/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// command is implemented by every subcommand in internal/cli.
type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the HTTP gateway
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		if err := entrypoint.Run(config.NewConfig(), Version); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "login":
		cmd = cli.NewLoginCommand()
	case "logout":
		cmd = cli.NewLogoutCommand()
	case "whoami":
		cmd = cli.NewWhoamiCommand()
	case "books":
		cmd = cli.NewBooksCommand()
	case "quotes":
		cmd = cli.NewQuotesCommand()
	case "shelves":
		cmd = cli.NewShelvesCommand()
	case "progress":
		cmd = cli.NewProgressCommand()
	case "worker":
		cmd = cli.NewWorkerCommand()
	case "version":
		fmt.Printf("readshelf %s (%s)\n", Version, Commit)
		return
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the HTTP gateway (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  login     Sign in and store the session\n")
	fmt.Fprintf(os.Stderr, "  logout    Remove a stored session\n")
	fmt.Fprintf(os.Stderr, "  whoami    Show the stored session in use\n")
	fmt.Fprintf(os.Stderr, "  books     List, add, update and delete books\n")
	fmt.Fprintf(os.Stderr, "  quotes    List, add and delete quotes\n")
	fmt.Fprintf(os.Stderr, "  shelves   Manage shelves and the books on them\n")
	fmt.Fprintf(os.Stderr, "  progress  Record the current page of a book\n")
	fmt.Fprintf(os.Stderr, "  worker    Send queued progress and refresh sessions\n")
	fmt.Fprintf(os.Stderr, "  version   Print the version\n")
	fmt.Fprintf(os.Stderr, "\nConfiguration is read from the environment (BACKEND_URL, BACKEND_ANON_KEY, ...).\n")
	fmt.Fprintf(os.Stderr, "Use '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
