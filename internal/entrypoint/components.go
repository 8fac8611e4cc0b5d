package entrypoint

import (
	"github.com/mrlokans/readshelf/internal/auth"
	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/mrlokans/readshelf/internal/config"
	"github.com/mrlokans/readshelf/internal/library"
	"github.com/mrlokans/readshelf/internal/storage"
	"github.com/mrlokans/readshelf/internal/tokenstore"
	"github.com/pkg/errors"
)

// Components are the services shared by the gateway, the worker and the
// CLI commands.
type Components struct {
	Config   *config.Config
	Backend  *backend.Client
	GoTrue   *auth.GoTrueClient
	Uploader storage.Uploader
	Sessions *tokenstore.TokenStore
}

// NewComponents validates cfg and opens the session store.
func NewComponents(cfg *config.Config) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := backend.NewClient(backend.Options{
		BaseURL: cfg.Backend.URL,
		AnonKey: cfg.Backend.AnonKey,
		Timeouts: backend.Timeouts{
			Read:   cfg.Timeouts.Read,
			Write:  cfg.Timeouts.Write,
			Upload: cfg.Timeouts.Upload,
		},
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})

	sessions, err := tokenstore.New(tokenstore.Config{
		DatabasePath:  cfg.Session.DatabasePath,
		EncryptionKey: cfg.Session.EncryptionKey,
		Passphrase:    cfg.Session.Passphrase,
		KeyFilePath:   cfg.Session.KeyFilePath,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open session store")
	}

	return &Components{
		Config:   cfg,
		Backend:  client,
		GoTrue:   auth.NewGoTrueClient(client),
		Uploader: storage.NewBackendUploader(client),
		Sessions: sessions,
	}, nil
}

// Library builds a service authenticating through tokens.
func (c *Components) Library(tokens auth.TokenProvider) *library.Service {
	return library.NewService(c.Backend, c.Uploader, tokens, library.Options{
		ReconcileMode: c.Config.Library.ReconcileMode,
		DefaultStatus: c.Config.Library.DefaultStatus,
	})
}

// StoredTokens serves the configured account's stored session, or the most
// recent one when no account is configured.
func (c *Components) StoredTokens() *auth.StoredTokenSource {
	opts := []auth.StoredTokenSourceOption{}
	if c.Config.Session.Account != "" {
		opts = append(opts, auth.WithAccount(c.Config.Session.Account))
	}
	return auth.NewStoredTokenSource(c.Sessions, c.GoTrue, opts...)
}

func (c *Components) Close() error {
	return c.Sessions.Close()
}
