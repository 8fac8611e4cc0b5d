// Package library implements the reading-list operations: books, quotes,
// shelves and reading progress, stored remotely in the backend.
package library

import (
	"context"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mrlokans/readshelf/internal/auth"
	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/mrlokans/readshelf/internal/config"
	"github.com/mrlokans/readshelf/internal/storage"
)

const (
	tableBooks     = "books"
	tableQuotes    = "quotes"
	tableShelves   = "shelves"
	tableBookShelf = "book_shelf"
)

// DefaultStatus is the status label used when neither the record nor the
// configuration provides one.
const DefaultStatus = "planned"

// Options tunes a Service.
type Options struct {
	ReconcileMode config.ReconcileMode
	DefaultStatus string
}

// Service performs one logical operation per call. Each call authenticates
// through the token provider, so a Service can be shared by many users when
// the provider reads the token from the request context.
type Service struct {
	backend  *backend.Client
	uploader storage.Uploader
	tokens   auth.TokenProvider
	validate *validator.Validate

	mode          config.ReconcileMode
	defaultStatus string
}

func NewService(client *backend.Client, uploader storage.Uploader, tokens auth.TokenProvider, opts Options) *Service {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mode := opts.ReconcileMode
	if mode == "" {
		mode = config.ReconcileBestEffort
	}
	status := opts.DefaultStatus
	if status == "" {
		status = DefaultStatus
	}

	return &Service{
		backend:       client,
		uploader:      uploader,
		tokens:        tokens,
		validate:      validate,
		mode:          mode,
		defaultStatus: status,
	}
}

// ReconcileMode returns the mode used by UpdateCurrentPage.
func (s *Service) ReconcileMode() config.ReconcileMode {
	return s.mode
}

// session returns the bearer token and the user id it belongs to.
func (s *Service) session(ctx context.Context) (string, string, error) {
	token, userID, err := auth.Session(ctx, s.tokens)
	if err != nil {
		return "", "", notAuthenticated(err)
	}
	return token, userID, nil
}

func (s *Service) check(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return invalidInput(err)
	}
	return nil
}
