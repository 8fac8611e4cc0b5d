package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mrlokans/readshelf/internal/auth"
	"github.com/mrlokans/readshelf/internal/config"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/mrlokans/readshelf/internal/entrypoint"
	"github.com/mrlokans/readshelf/internal/tokenstore"
	"github.com/pkg/errors"
)

const passwordEnv = "READSHELF_PASSWORD"

// LoginCommand signs in with email and password and stores the session.
type LoginCommand struct {
	Email    string
	Password string

	Config *config.Config
	In     io.Reader
	Out    io.Writer
}

func NewLoginCommand() *LoginCommand {
	return &LoginCommand{}
}

func (cmd *LoginCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	fs.StringVar(&cmd.Email, "email", "", "Account email (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (default: $"+passwordEnv+", then stdin)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s login -email <email> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Sign in and store the session encrypted in the local database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Email == "" {
		return errors.New("required flag -email not provided")
	}
	return nil
}

func (cmd *LoginCommand) Run() error {
	password, err := cmd.password()
	if err != nil {
		return err
	}

	components, err := entrypoint.NewComponents(loadConfig(cmd.Config))
	if err != nil {
		return err
	}
	defer components.Close()

	account := strings.ToLower(strings.TrimSpace(cmd.Email))
	resp, err := components.GoTrue.SignInWithPassword(context.Background(), account, password)
	if err != nil {
		return err
	}

	userID := resp.UserID()
	if userID == "" {
		return auth.ErrNoUserID
	}

	err = components.Sessions.SaveSession(&entities.Session{
		Account:      account,
		UserID:       userID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresAt:    resp.ExpiresAt(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout(cmd.Out), "Signed in as %s (user %s)\n", account, userID)
	return nil
}

func (cmd *LoginCommand) password() (string, error) {
	if cmd.Password != "" {
		return cmd.Password, nil
	}
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}

	in := cmd.In
	if in == nil {
		in = os.Stdin
		fmt.Fprint(os.Stderr, "Password: ")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "read password")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}

// LogoutCommand removes a stored session.
type LogoutCommand struct {
	Email string

	Config *config.Config
	Out    io.Writer
}

func NewLogoutCommand() *LogoutCommand {
	return &LogoutCommand{}
}

func (cmd *LogoutCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	fs.StringVar(&cmd.Email, "email", "", "Account to sign out (default: configured or most recent)")
	return fs.Parse(args)
}

func (cmd *LogoutCommand) Run() error {
	components, err := entrypoint.NewComponents(loadConfig(cmd.Config))
	if err != nil {
		return err
	}
	defer components.Close()

	account, err := resolveAccount(components, cmd.Email)
	if err != nil {
		return err
	}
	if err := components.Sessions.DeleteSession(account); err != nil {
		return err
	}

	fmt.Fprintf(stdout(cmd.Out), "Signed out %s\n", account)
	return nil
}

// WhoamiCommand prints the stored session the other commands will use.
type WhoamiCommand struct {
	Config *config.Config
	Out    io.Writer
}

func NewWhoamiCommand() *WhoamiCommand {
	return &WhoamiCommand{}
}

func (cmd *WhoamiCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	return fs.Parse(args)
}

func (cmd *WhoamiCommand) Run() error {
	components, err := entrypoint.NewComponents(loadConfig(cmd.Config))
	if err != nil {
		return err
	}
	defer components.Close()

	account, err := resolveAccount(components, "")
	if err != nil {
		return err
	}
	session, err := components.Sessions.GetSession(account)
	if err != nil {
		return err
	}

	userID := session.UserID
	if sub, ok := auth.SubjectFromToken(session.AccessToken); ok {
		userID = sub
	}

	out := stdout(cmd.Out)
	fmt.Fprintf(out, "Account: %s\n", session.Account)
	fmt.Fprintf(out, "User ID: %s\n", userID)
	if session.ExpiresAt != nil {
		fmt.Fprintf(out, "Token expires: %s\n", session.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func resolveAccount(c *entrypoint.Components, explicit string) (string, error) {
	if explicit != "" {
		return strings.ToLower(strings.TrimSpace(explicit)), nil
	}
	if c.Config.Session.Account != "" {
		return c.Config.Session.Account, nil
	}
	session, err := c.Sessions.LatestSession()
	if err != nil {
		if errors.Is(err, tokenstore.ErrSessionNotFound) {
			return "", auth.ErrNoToken
		}
		return "", err
	}
	return session.Account, nil
}
