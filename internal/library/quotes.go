package library

import (
	"context"
	"net/http"
	"strings"

	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/pkg/errors"
)

// AddQuote saves a quote for the signed-in user.
func (s *Service) AddQuote(ctx context.Context, in NewQuote) (*entities.Quote, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := s.check(in); err != nil {
		return nil, err
	}
	token, userID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	var rows []quoteRow
	err = s.backend.DoJSON(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   backend.RestPath(tableQuotes),
		Token:  token,
		JSON: quoteRow{
			BookID:    in.BookID,
			UserID:    userID,
			Text:      in.Text,
			StartPage: in.StartPage,
			EndPage:   in.EndPage,
		},
		Prefer: backend.PreferRepresentation,
	}, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "add quote")
	}
	if len(rows) == 0 {
		return nil, errors.New("add quote: backend returned no record")
	}

	quote := rows[0].toQuote()
	return &quote, nil
}

// ListQuotes returns the quotes of a book, newest first.
func (s *Service) ListQuotes(ctx context.Context, bookID string) ([]entities.Quote, error) {
	if bookID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "book id is required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	var rows []quoteRow
	err = s.backend.DoJSON(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   backend.RestPath(tableQuotes),
		Query:  backend.NewQuery().Eq("book_id", bookID).Order("created_at", true).Values(),
		Token:  token,
	}, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "list quotes")
	}

	quotes := make([]entities.Quote, 0, len(rows))
	for _, row := range rows {
		quotes = append(quotes, row.toQuote())
	}
	return quotes, nil
}

// DeleteQuote removes a quote.
func (s *Service) DeleteQuote(ctx context.Context, id string) error {
	if id == "" {
		return errors.Wrap(ErrInvalidInput, "quote id is required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return err
	}
	return errors.Wrap(s.delete(ctx, token, tableQuotes, backend.NewQuery().Eq("id", id)), "delete quote")
}
