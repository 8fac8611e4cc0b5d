package library

import (
	"io"
	"time"

	"github.com/mrlokans/readshelf/internal/entities"
)

// NewBook is the input for creating a book record.
type NewBook struct {
	Title       string              `json:"title" validate:"required"`
	Author      string              `json:"author"`
	Description string              `json:"description"`
	TotalPages  int                 `json:"total_pages" validate:"gte=0"`
	CurrentPage int                 `json:"current_page" validate:"gte=0"`
	Status      string              `json:"status"` // Empty means the configured default label
	Rating      float64             `json:"rating" validate:"gte=0,lte=5"`
	StartDate   *time.Time          `json:"start_date"`
	EndDate     *time.Time          `json:"end_date"`
	CoverPath   string              `json:"cover_path"`
	FileURL     string              `json:"file_url"`
	FileFormat  entities.FileFormat `json:"file_format"` // Inferred from FileURL when empty
}

// BookPatch changes the non-nil fields of a book.
type BookPatch struct {
	Title       *string    `json:"title" validate:"omitempty,min=1"`
	Author      *string    `json:"author"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	TotalPages  *int       `json:"total_pages" validate:"omitempty,gte=0"`
	Rating      *float64   `json:"rating" validate:"omitempty,gte=0,lte=5"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	CoverPath   *string    `json:"cover_path"`
}

func (p BookPatch) fields() map[string]any {
	fields := map[string]any{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Author != nil {
		fields["author"] = *p.Author
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.TotalPages != nil {
		fields["total_pages"] = *p.TotalPages
	}
	if p.Rating != nil {
		fields["rating"] = *p.Rating
	}
	if p.StartDate != nil {
		fields["start_date"] = *formatDate(p.StartDate)
	}
	if p.EndDate != nil {
		fields["end_date"] = *formatDate(p.EndDate)
	}
	if p.CoverPath != nil {
		fields["cover_path"] = *p.CoverPath
	}
	return fields
}

// Upload is a file to be stored. Name is used for extension inference only.
type Upload struct {
	Name string
	Body io.Reader
}

// NewQuote is the input for saving a quote.
type NewQuote struct {
	BookID    string `json:"book_id" validate:"required"`
	Text      string `json:"text" validate:"required"`
	StartPage int    `json:"start_page" validate:"gte=0"`
	EndPage   int    `json:"end_page" validate:"omitempty,gtefield=StartPage"`
}

// NewShelf is the input for creating a shelf.
type NewShelf struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// ShelfPatch changes the non-nil fields of a shelf.
type ShelfPatch struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
}

func (p ShelfPatch) fields() map[string]any {
	fields := map[string]any{}
	if p.Name != nil {
		fields["shelf_name"] = *p.Name
	}
	if p.Description != nil {
		fields["shelf_description"] = *p.Description
	}
	return fields
}
