package library

import (
	"context"
	"net/http"
	"strings"

	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/pkg/errors"
)

// CreateShelf creates an empty shelf.
func (s *Service) CreateShelf(ctx context.Context, in NewShelf) (*entities.Shelf, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.check(in); err != nil {
		return nil, err
	}
	token, userID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.backend.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   backend.RestPath(tableShelves),
		Token:  token,
		JSON: shelfRow{
			UserID:           userID,
			ShelfName:        in.Name,
			ShelfDescription: in.Description,
		},
		Prefer: backend.PreferRepresentation,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create shelf")
	}

	shelves, err := decodeShelves(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(shelves) == 0 {
		return nil, errors.New("create shelf: backend returned no record")
	}
	return &shelves[0], nil
}

// ListShelves returns the user's shelves with their book ids, fetched from
// the link table in a single request.
func (s *Service) ListShelves(ctx context.Context) ([]entities.Shelf, error) {
	token, userID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	shelves, err := s.fetchShelves(ctx, token, backend.NewQuery().Eq("user_id", userID).Order("shelf_name", false))
	if err != nil {
		return nil, err
	}
	if err := s.attachBookIDs(ctx, token, shelves); err != nil {
		return nil, err
	}
	return shelves, nil
}

// GetShelf returns one shelf with its book ids or ErrNotFound.
func (s *Service) GetShelf(ctx context.Context, id string) (*entities.Shelf, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidInput, "shelf id is required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	shelves, err := s.fetchShelves(ctx, token, backend.NewQuery().Eq("shelf_id", id))
	if err != nil {
		return nil, err
	}
	if len(shelves) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "shelf %s", id)
	}
	if err := s.attachBookIDs(ctx, token, shelves[:1]); err != nil {
		return nil, err
	}
	return &shelves[0], nil
}

// UpdateShelf renames or re-describes a shelf.
func (s *Service) UpdateShelf(ctx context.Context, id string, patch ShelfPatch) (*entities.Shelf, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidInput, "shelf id is required")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	if err := s.check(patch); err != nil {
		return nil, err
	}
	fields := patch.fields()
	if len(fields) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "nothing to update")
	}

	token, _, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.backend.Do(ctx, backend.Request{
		Method: http.MethodPatch,
		Path:   backend.RestPath(tableShelves),
		Query:  backend.NewQuery().Eq("shelf_id", id).Values(),
		Token:  token,
		JSON:   fields,
		Prefer: backend.PreferRepresentation,
	})
	if err != nil {
		return nil, errors.Wrap(err, "update shelf")
	}

	shelves, err := decodeShelves(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(shelves) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "shelf %s", id)
	}
	if err := s.attachBookIDs(ctx, token, shelves[:1]); err != nil {
		return nil, err
	}
	return &shelves[0], nil
}

// DeleteShelf removes the shelf's links and then the shelf. Books stay.
func (s *Service) DeleteShelf(ctx context.Context, id string) error {
	if id == "" {
		return errors.Wrap(ErrInvalidInput, "shelf id is required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return err
	}

	if err := s.delete(ctx, token, tableBookShelf, backend.NewQuery().Eq("shelf_id", id)); err != nil {
		return errors.Wrap(err, "delete shelf links")
	}
	if err := s.delete(ctx, token, tableShelves, backend.NewQuery().Eq("shelf_id", id)); err != nil {
		return errors.Wrap(err, "delete shelf")
	}
	return nil
}

// AddBookToShelf links a book to a shelf. An existing link is not an error.
func (s *Service) AddBookToShelf(ctx context.Context, bookID, shelfID string) error {
	if bookID == "" || shelfID == "" {
		return errors.Wrap(ErrInvalidInput, "book id and shelf id are required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return err
	}

	_, err = s.backend.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   backend.RestPath(tableBookShelf),
		Token:  token,
		JSON:   linkRow{BookID: bookID, ShelfID: shelfID},
		Prefer: backend.PreferMinimal,
	})
	if err != nil && !backend.IsStatus(err, http.StatusConflict) {
		return errors.Wrap(err, "add book to shelf")
	}
	return nil
}

// RemoveBookFromShelf unlinks a book. A missing link is not an error.
func (s *Service) RemoveBookFromShelf(ctx context.Context, bookID, shelfID string) error {
	if bookID == "" || shelfID == "" {
		return errors.Wrap(ErrInvalidInput, "book id and shelf id are required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return err
	}

	err = s.delete(ctx, token, tableBookShelf, backend.NewQuery().Eq("book_id", bookID).Eq("shelf_id", shelfID))
	if err != nil && !backend.IsStatus(err, http.StatusNotFound) {
		return errors.Wrap(err, "remove book from shelf")
	}
	return nil
}

// ListShelfBooks returns the books on a shelf.
func (s *Service) ListShelfBooks(ctx context.Context, shelfID string) ([]entities.Book, error) {
	if shelfID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "shelf id is required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	links, err := s.fetchLinks(ctx, token, []string{shelfID})
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return []entities.Book{}, nil
	}

	ids := make([]string, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.BookID)
	}
	return s.fetchBooks(ctx, token, backend.NewQuery().In("id", ids).Order("created_at", true))
}

func (s *Service) fetchShelves(ctx context.Context, token string, query backend.Query) ([]entities.Shelf, error) {
	resp, err := s.backend.Do(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   backend.RestPath(tableShelves),
		Query:  query.Values(),
		Token:  token,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list shelves")
	}
	return decodeShelves(resp.Body)
}

func (s *Service) fetchLinks(ctx context.Context, token string, shelfIDs []string) ([]linkRow, error) {
	var links []linkRow
	err := s.backend.DoJSON(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   backend.RestPath(tableBookShelf),
		Query:  backend.NewQuery().In("shelf_id", shelfIDs).Select("book_id", "shelf_id").Values(),
		Token:  token,
	}, &links)
	if err != nil {
		return nil, errors.Wrap(err, "list shelf links")
	}
	return links, nil
}

// attachBookIDs fills BookIDs of every shelf in place, keeping link order.
func (s *Service) attachBookIDs(ctx context.Context, token string, shelves []entities.Shelf) error {
	if len(shelves) == 0 {
		return nil
	}

	ids := make([]string, len(shelves))
	index := make(map[string]int, len(shelves))
	for i, shelf := range shelves {
		ids[i] = shelf.ID
		index[shelf.ID] = i
	}

	links, err := s.fetchLinks(ctx, token, ids)
	if err != nil {
		return err
	}
	for _, link := range links {
		if i, ok := index[link.ShelfID]; ok {
			shelves[i].BookIDs = append(shelves[i].BookIDs, link.BookID)
		}
	}
	return nil
}
