package library

import (
	"slices"
	"time"

	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const dateLayout = "2006-01-02"

// bookRow is the wire form of a books record.
type bookRow struct {
	ID          string     `json:"id,omitempty"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Description string     `json:"description"`
	TotalPages  int        `json:"total_pages"`
	CurrentPage int        `json:"current_page"`
	Status      *string    `json:"status"`
	CoverPath   string     `json:"cover_path"`
	FileURL     string     `json:"file_url"`
	FileFormat  string     `json:"file_format"`
	Rating      float64    `json:"rating"`
	StartDate   *string    `json:"start_date"`
	EndDate     *string    `json:"end_date"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

func (r bookRow) toBook(defaultStatus string) entities.Book {
	book := entities.Book{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Author:      r.Author,
		Description: r.Description,
		TotalPages:  r.TotalPages,
		CurrentPage: r.CurrentPage,
		Status:      defaultStatus,
		CoverPath:   r.CoverPath,
		FileURL:     r.FileURL,
		Rating:      r.Rating,
		StartDate:   parseDate(r.StartDate),
		EndDate:     parseDate(r.EndDate),
	}
	if r.Status != nil && *r.Status != "" {
		book.Status = *r.Status
	}
	if r.FileFormat != "" {
		book.FileFormat = entities.ParseFileFormat(r.FileFormat)
	} else {
		book.FileFormat = entities.FileFormatFromURL(r.FileURL)
	}
	if r.CreatedAt != nil {
		book.CreatedAt = *r.CreatedAt
	}
	return book
}

func bookRowFrom(userID string, b NewBook, status string) bookRow {
	format := b.FileFormat
	if format == "" {
		format = entities.FileFormatFromURL(b.FileURL)
	}
	return bookRow{
		UserID:      userID,
		Title:       b.Title,
		Author:      b.Author,
		Description: b.Description,
		TotalPages:  b.TotalPages,
		CurrentPage: b.CurrentPage,
		Status:      &status,
		CoverPath:   b.CoverPath,
		FileURL:     b.FileURL,
		FileFormat:  string(format),
		Rating:      b.Rating,
		StartDate:   formatDate(b.StartDate),
		EndDate:     formatDate(b.EndDate),
	}
}

// quoteRow is the wire form of a quotes record.
type quoteRow struct {
	ID        string     `json:"id,omitempty"`
	BookID    string     `json:"book_id"`
	UserID    string     `json:"user_id"`
	Text      string     `json:"text"`
	StartPage int        `json:"start_page"`
	EndPage   int        `json:"end_page"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (r quoteRow) toQuote() entities.Quote {
	quote := entities.Quote{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		Text:      r.Text,
		StartPage: r.StartPage,
		EndPage:   r.EndPage,
	}
	if r.CreatedAt != nil {
		quote.CreatedAt = *r.CreatedAt
	}
	return quote
}

// shelfRow is the canonical wire form of a shelves record.
type shelfRow struct {
	ShelfID          string `json:"shelf_id,omitempty"`
	UserID           string `json:"user_id"`
	ShelfName        string `json:"shelf_name"`
	ShelfDescription string `json:"shelf_description"`
}

// shelfWire accepts any shelf object so that schema drift can be reported.
type shelfWire struct {
	ShelfID          *string `json:"shelf_id"`
	ShelfName        *string `json:"shelf_name"`
	ShelfDescription *string `json:"shelf_description"`
	UserID           string  `json:"user_id"`

	LegacyID          json.RawMessage `json:"id"`
	LegacyName        json.RawMessage `json:"name"`
	LegacyDescription json.RawMessage `json:"description"`
}

// decodeShelf maps one shelf object. Objects lacking shelf_id or shelf_name
// fail with *SchemaError; a missing shelf_description is an empty string.
func decodeShelf(raw json.RawMessage) (entities.Shelf, error) {
	var w shelfWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return entities.Shelf{}, errors.Wrap(err, "decode shelf")
	}

	var missing []string
	if w.ShelfID == nil || *w.ShelfID == "" {
		missing = append(missing, "shelf_id")
	}
	if w.ShelfName == nil {
		missing = append(missing, "shelf_name")
	}
	if len(missing) > 0 {
		var legacy []string
		for name, v := range map[string]json.RawMessage{"id": w.LegacyID, "name": w.LegacyName, "description": w.LegacyDescription} {
			if v != nil {
				legacy = append(legacy, name)
			}
		}
		slices.Sort(legacy)
		return entities.Shelf{}, &SchemaError{Entity: "shelf", Missing: missing, Legacy: legacy}
	}

	shelf := entities.Shelf{
		ID:      *w.ShelfID,
		UserID:  w.UserID,
		Name:    *w.ShelfName,
		BookIDs: []string{},
	}
	if w.ShelfDescription != nil {
		shelf.Description = *w.ShelfDescription
	}
	return shelf, nil
}

func decodeShelves(body []byte) ([]entities.Shelf, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, errors.Wrap(err, "decode shelves")
	}

	shelves := make([]entities.Shelf, 0, len(raws))
	for _, raw := range raws {
		shelf, err := decodeShelf(raw)
		if err != nil {
			return nil, err
		}
		shelves = append(shelves, shelf)
	}
	return shelves, nil
}

type linkRow struct {
	BookID  string `json:"book_id"`
	ShelfID string `json:"shelf_id"`
}

// parseDate reads "YYYY-MM-DD" or an RFC 3339 timestamp. Anything else is
// treated as absent.
func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range []string{dateLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t
		}
	}
	return nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
