package http

import (
	"context"

	"github.com/mrlokans/readshelf/internal/auth"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/mrlokans/readshelf/internal/library"
)

// Each controller declares the slice of *library.Service it needs.

// BookStore covers book records, uploads and reading progress.
type BookStore interface {
	ListBooks(ctx context.Context, status string) ([]entities.Book, error)
	GetBook(ctx context.Context, id string) (*entities.Book, error)
	CreateBook(ctx context.Context, in library.NewBook) (*entities.Book, error)
	AddBook(ctx context.Context, in library.NewBook, file library.Upload, cover *library.Upload) (*entities.Book, error)
	UpdateBook(ctx context.Context, id string, patch library.BookPatch) (*entities.Book, error)
	UpdateTotalPages(ctx context.Context, id string, total int) error
	UpdateCurrentPage(ctx context.Context, bookID string, page int) (*library.ProgressResult, error)
	DeleteBook(ctx context.Context, id string) error
}

// QuoteStore covers quotes.
type QuoteStore interface {
	AddQuote(ctx context.Context, in library.NewQuote) (*entities.Quote, error)
	ListQuotes(ctx context.Context, bookID string) ([]entities.Quote, error)
	DeleteQuote(ctx context.Context, id string) error
}

// ShelfStore covers shelves and their book links.
type ShelfStore interface {
	CreateShelf(ctx context.Context, in library.NewShelf) (*entities.Shelf, error)
	ListShelves(ctx context.Context) ([]entities.Shelf, error)
	GetShelf(ctx context.Context, id string) (*entities.Shelf, error)
	UpdateShelf(ctx context.Context, id string, patch library.ShelfPatch) (*entities.Shelf, error)
	DeleteShelf(ctx context.Context, id string) error
	AddBookToShelf(ctx context.Context, bookID, shelfID string) error
	RemoveBookFromShelf(ctx context.Context, bookID, shelfID string) error
	ListShelfBooks(ctx context.Context, shelfID string) ([]entities.Book, error)
}

// SignInService exchanges credentials and refresh tokens for token pairs.
type SignInService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenResponse, error)
}

var (
	_ BookStore     = (*library.Service)(nil)
	_ QuoteStore    = (*library.Service)(nil)
	_ ShelfStore    = (*library.Service)(nil)
	_ SignInService = (*auth.GoTrueClient)(nil)
)
