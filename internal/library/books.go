package library

import (
	"context"
	"net/http"
	"path"

	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/mrlokans/readshelf/internal/storage"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// UploadFile stores a file in bucket under the user's folder.
func (s *Service) UploadFile(ctx context.Context, bucket string, file Upload) (*storage.StoredObject, error) {
	token, userID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.upload(ctx, token, userID, bucket, file)
}

func (s *Service) upload(ctx context.Context, token, userID, bucket string, file Upload) (*storage.StoredObject, error) {
	if file.Body == nil {
		return nil, errors.Wrapf(ErrInvalidInput, "no content to upload to %s", bucket)
	}

	content, err := storage.Inspect(file.Name, file.Body, bucket)
	if err != nil {
		return nil, err
	}

	return s.uploader.Upload(ctx, token, storage.Object{
		Bucket:      bucket,
		Name:        storage.ObjectName(userID, content.Extension),
		ContentType: content.ContentType,
		Body:        content.Reader,
	})
}

// AddBook uploads the book file, then the optional cover, then creates the
// record pointing at both. A failing step stops the pipeline and the objects
// uploaded so far are removed. Removal is best effort: if it fails the
// objects stay in storage and a warning is logged.
func (s *Service) AddBook(ctx context.Context, in NewBook, file Upload, cover *Upload) (*entities.Book, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	token, userID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	stored, err := s.upload(ctx, token, userID, storage.BucketBooks, file)
	if err != nil {
		return nil, errors.Wrap(err, "upload book file")
	}
	uploaded := []*storage.StoredObject{stored}
	in.FileURL = stored.PublicURL
	if in.FileFormat == "" {
		in.FileFormat = uploadFormat(file.Name, stored.Name)
	}

	if cover != nil {
		coverObj, err := s.upload(ctx, token, userID, storage.BucketCovers, *cover)
		if err != nil {
			s.discardUploads(ctx, token, uploaded)
			return nil, errors.Wrap(err, "upload cover")
		}
		uploaded = append(uploaded, coverObj)
		in.CoverPath = coverObj.PublicURL
	}

	book, err := s.createBook(ctx, token, userID, in)
	if err != nil {
		s.discardUploads(ctx, token, uploaded)
		return nil, err
	}

	logger.FromContext(ctx).Info("book added", logger.Data{
		"book_id": book.ID,
		"format":  book.FileFormat,
		"cover":   book.CoverPath != "",
	})
	return book, nil
}

// uploadFormat prefers the caller's file name since the stored object name
// loses hints such as "fb2" in "war.fb2.zip".
func uploadFormat(original, stored string) entities.FileFormat {
	if path.Ext(original) != "" {
		return entities.FileFormatFromURL(original)
	}
	return entities.FileFormatFromURL(stored)
}

func (s *Service) discardUploads(ctx context.Context, token string, objs []*storage.StoredObject) {
	ctx = context.WithoutCancel(ctx)
	for _, obj := range objs {
		if err := s.uploader.Remove(ctx, token, obj.Bucket, obj.Name); err != nil {
			logger.FromContext(ctx).Err(err).Warn("orphaned upload left in storage", logger.Data{"object": obj.Path})
		}
	}
}

// CreateBook creates a book record for already stored files.
func (s *Service) CreateBook(ctx context.Context, in NewBook) (*entities.Book, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	token, userID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return s.createBook(ctx, token, userID, in)
}

func (s *Service) createBook(ctx context.Context, token, userID string, in NewBook) (*entities.Book, error) {
	status := in.Status
	if status == "" {
		status = s.defaultStatus
	}

	var rows []bookRow
	err := s.backend.DoJSON(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   backend.RestPath(tableBooks),
		Token:  token,
		JSON:   bookRowFrom(userID, in, status),
		Prefer: backend.PreferRepresentation,
	}, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "create book")
	}
	if len(rows) == 0 {
		return nil, errors.New("create book: backend returned no record")
	}

	book := rows[0].toBook(s.defaultStatus)
	return &book, nil
}

// ListBooks returns the user's books, optionally only those with status.
func (s *Service) ListBooks(ctx context.Context, status string) ([]entities.Book, error) {
	token, userID, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	query := backend.NewQuery().Eq("user_id", userID).Order("created_at", true)
	if status != "" {
		query.Eq("status", status)
	}
	return s.fetchBooks(ctx, token, query)
}

// GetBook returns one book or ErrNotFound.
func (s *Service) GetBook(ctx context.Context, id string) (*entities.Book, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidInput, "book id is required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.fetchBooks(ctx, token, backend.NewQuery().Eq("id", id))
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "book %s", id)
	}
	return &books[0], nil
}

func (s *Service) fetchBooks(ctx context.Context, token string, query backend.Query) ([]entities.Book, error) {
	var rows []bookRow
	err := s.backend.DoJSON(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   backend.RestPath(tableBooks),
		Query:  query.Values(),
		Token:  token,
	}, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "list books")
	}

	books := make([]entities.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.toBook(s.defaultStatus))
	}
	return books, nil
}

// UpdateTotalPages sets the page count of a book.
func (s *Service) UpdateTotalPages(ctx context.Context, id string, total int) error {
	if id == "" || total < 0 {
		return errors.Wrap(ErrInvalidInput, "book id and a non-negative page count are required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return err
	}
	_, err = s.patchBook(ctx, token, id, map[string]any{"total_pages": total}, backend.PreferMinimal, "")
	return errors.Wrap(err, "update total pages")
}

// UpdateBook applies patch and returns the updated book.
func (s *Service) UpdateBook(ctx context.Context, id string, patch BookPatch) (*entities.Book, error) {
	if id == "" {
		return nil, errors.Wrap(ErrInvalidInput, "book id is required")
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

	rows, err := s.patchBook(ctx, token, id, fields, backend.PreferRepresentation, "")
	if err != nil {
		return nil, errors.Wrap(err, "update book")
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "book %s", id)
	}
	book := rows[0].toBook(s.defaultStatus)
	return &book, nil
}

func (s *Service) patchBook(ctx context.Context, token, id string, fields map[string]any, prefer, ifMatch string) ([]bookRow, error) {
	var rows []bookRow
	err := s.backend.DoJSON(ctx, backend.Request{
		Method:  http.MethodPatch,
		Path:    backend.RestPath(tableBooks),
		Query:   backend.NewQuery().Eq("id", id).Values(),
		Token:   token,
		JSON:    fields,
		Prefer:  prefer,
		IfMatch: ifMatch,
	}, &rows)
	return rows, err
}

// DeleteBook removes the book's shelf links and then the book.
func (s *Service) DeleteBook(ctx context.Context, id string) error {
	if id == "" {
		return errors.Wrap(ErrInvalidInput, "book id is required")
	}
	token, _, err := s.session(ctx)
	if err != nil {
		return err
	}

	if err := s.delete(ctx, token, tableBookShelf, backend.NewQuery().Eq("book_id", id)); err != nil {
		return errors.Wrap(err, "delete book links")
	}
	if err := s.delete(ctx, token, tableBooks, backend.NewQuery().Eq("id", id)); err != nil {
		return errors.Wrap(err, "delete book")
	}
	return nil
}

func (s *Service) delete(ctx context.Context, token, table string, query backend.Query) error {
	_, err := s.backend.Do(ctx, backend.Request{
		Method: http.MethodDelete,
		Path:   backend.RestPath(table),
		Query:  query.Values(),
		Token:  token,
	})
	return err
}
