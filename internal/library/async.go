package library

import (
	"context"

	"github.com/mrlokans/readshelf/internal/dispatch"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/mrlokans/readshelf/internal/storage"
)

// AsyncService runs Service operations on a dispatcher. Every callback runs
// on the dispatcher's delivery goroutine. Each method is one task, so a
// multi-step operation such as AddBook never interleaves its own steps.
type AsyncService struct {
	svc *Service
	d   *dispatch.Dispatcher
}

func NewAsyncService(svc *Service, d *dispatch.Dispatcher) *AsyncService {
	return &AsyncService{svc: svc, d: d}
}

// ctxFor keeps values of the caller's context, such as a forwarded token,
// while the task runs under the dispatcher's context.
func ctxFor(caller context.Context, task context.Context) context.Context {
	if caller == nil {
		return task
	}
	return mergedContext{Context: task, values: caller}
}

type mergedContext struct {
	context.Context
	values context.Context
}

func (c mergedContext) Value(key any) any {
	if v := c.values.Value(key); v != nil {
		return v
	}
	return c.Context.Value(key)
}

func (a *AsyncService) UploadFile(ctx context.Context, bucket string, file Upload, cb dispatch.Callback[*storage.StoredObject]) {
	dispatch.Run(a.d, func(t context.Context) (*storage.StoredObject, error) {
		return a.svc.UploadFile(ctxFor(ctx, t), bucket, file)
	}, cb)
}

func (a *AsyncService) AddBook(ctx context.Context, in NewBook, file Upload, cover *Upload, cb dispatch.Callback[*entities.Book]) {
	dispatch.Run(a.d, func(t context.Context) (*entities.Book, error) {
		return a.svc.AddBook(ctxFor(ctx, t), in, file, cover)
	}, cb)
}

func (a *AsyncService) CreateBook(ctx context.Context, in NewBook, cb dispatch.Callback[*entities.Book]) {
	dispatch.Run(a.d, func(t context.Context) (*entities.Book, error) {
		return a.svc.CreateBook(ctxFor(ctx, t), in)
	}, cb)
}

func (a *AsyncService) ListBooks(ctx context.Context, status string, cb dispatch.Callback[[]entities.Book]) {
	dispatch.Run(a.d, func(t context.Context) ([]entities.Book, error) {
		return a.svc.ListBooks(ctxFor(ctx, t), status)
	}, cb)
}

func (a *AsyncService) GetBook(ctx context.Context, id string, cb dispatch.Callback[*entities.Book]) {
	dispatch.Run(a.d, func(t context.Context) (*entities.Book, error) {
		return a.svc.GetBook(ctxFor(ctx, t), id)
	}, cb)
}

func (a *AsyncService) UpdateCurrentPage(ctx context.Context, id string, page int, cb dispatch.Callback[*ProgressResult]) {
	dispatch.Run(a.d, func(t context.Context) (*ProgressResult, error) {
		return a.svc.UpdateCurrentPage(ctxFor(ctx, t), id, page)
	}, cb)
}

func (a *AsyncService) UpdateTotalPages(ctx context.Context, id string, total int, cb dispatch.Callback[struct{}]) {
	dispatch.Do(a.d, func(t context.Context) error {
		return a.svc.UpdateTotalPages(ctxFor(ctx, t), id, total)
	}, cb)
}

func (a *AsyncService) UpdateBook(ctx context.Context, id string, patch BookPatch, cb dispatch.Callback[*entities.Book]) {
	dispatch.Run(a.d, func(t context.Context) (*entities.Book, error) {
		return a.svc.UpdateBook(ctxFor(ctx, t), id, patch)
	}, cb)
}

func (a *AsyncService) DeleteBook(ctx context.Context, id string, cb dispatch.Callback[struct{}]) {
	dispatch.Do(a.d, func(t context.Context) error {
		return a.svc.DeleteBook(ctxFor(ctx, t), id)
	}, cb)
}

func (a *AsyncService) AddQuote(ctx context.Context, in NewQuote, cb dispatch.Callback[*entities.Quote]) {
	dispatch.Run(a.d, func(t context.Context) (*entities.Quote, error) {
		return a.svc.AddQuote(ctxFor(ctx, t), in)
	}, cb)
}

func (a *AsyncService) ListQuotes(ctx context.Context, bookID string, cb dispatch.Callback[[]entities.Quote]) {
	dispatch.Run(a.d, func(t context.Context) ([]entities.Quote, error) {
		return a.svc.ListQuotes(ctxFor(ctx, t), bookID)
	}, cb)
}

func (a *AsyncService) DeleteQuote(ctx context.Context, id string, cb dispatch.Callback[struct{}]) {
	dispatch.Do(a.d, func(t context.Context) error {
		return a.svc.DeleteQuote(ctxFor(ctx, t), id)
	}, cb)
}

func (a *AsyncService) CreateShelf(ctx context.Context, in NewShelf, cb dispatch.Callback[*entities.Shelf]) {
	dispatch.Run(a.d, func(t context.Context) (*entities.Shelf, error) {
		return a.svc.CreateShelf(ctxFor(ctx, t), in)
	}, cb)
}

func (a *AsyncService) ListShelves(ctx context.Context, cb dispatch.Callback[[]entities.Shelf]) {
	dispatch.Run(a.d, func(t context.Context) ([]entities.Shelf, error) {
		return a.svc.ListShelves(ctxFor(ctx, t))
	}, cb)
}

func (a *AsyncService) GetShelf(ctx context.Context, id string, cb dispatch.Callback[*entities.Shelf]) {
	dispatch.Run(a.d, func(t context.Context) (*entities.Shelf, error) {
		return a.svc.GetShelf(ctxFor(ctx, t), id)
	}, cb)
}

func (a *AsyncService) UpdateShelf(ctx context.Context, id string, patch ShelfPatch, cb dispatch.Callback[*entities.Shelf]) {
	dispatch.Run(a.d, func(t context.Context) (*entities.Shelf, error) {
		return a.svc.UpdateShelf(ctxFor(ctx, t), id, patch)
	}, cb)
}

func (a *AsyncService) DeleteShelf(ctx context.Context, id string, cb dispatch.Callback[struct{}]) {
	dispatch.Do(a.d, func(t context.Context) error {
		return a.svc.DeleteShelf(ctxFor(ctx, t), id)
	}, cb)
}

func (a *AsyncService) AddBookToShelf(ctx context.Context, bookID, shelfID string, cb dispatch.Callback[struct{}]) {
	dispatch.Do(a.d, func(t context.Context) error {
		return a.svc.AddBookToShelf(ctxFor(ctx, t), bookID, shelfID)
	}, cb)
}

func (a *AsyncService) RemoveBookFromShelf(ctx context.Context, bookID, shelfID string, cb dispatch.Callback[struct{}]) {
	dispatch.Do(a.d, func(t context.Context) error {
		return a.svc.RemoveBookFromShelf(ctxFor(ctx, t), bookID, shelfID)
	}, cb)
}

func (a *AsyncService) ListShelfBooks(ctx context.Context, shelfID string, cb dispatch.Callback[[]entities.Book]) {
	dispatch.Run(a.d, func(t context.Context) ([]entities.Book, error) {
		return a.svc.ListShelfBooks(ctxFor(ctx, t), shelfID)
	}, cb)
}
