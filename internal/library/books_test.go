package library

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookJSON = `{
	"id": "b1",
	"user_id": "user-1",
	"title": "Dune",
	"author": "Frank Herbert",
	"total_pages": 412,
	"current_page": 12,
	"status": "reading",
	"file_url": "https://cdn.example.com/books/user-1/x.fb2.zip",
	"rating": 4.5,
	"start_date": "2024-03-01",
	"created_at": "2024-03-01T10:00:00Z"
}`

func TestListBooks(t *testing.T) {
	svc, fake := newTestService(t, Options{DefaultStatus: "want to read"}, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `[`+bookJSON+`, {"id":"b2","title":"Bare"}]`)
	})

	books, err := svc.ListBooks(context.Background(), "reading")
	require.NoError(t, err)
	require.Len(t, books, 2)

	reqs := fake.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/rest/v1/books", reqs[0].Path)
	assert.Equal(t, []string{"eq.user-1"}, reqs[0].Query["user_id"])
	assert.Equal(t, []string{"eq.reading"}, reqs[0].Query["status"])
	assert.Equal(t, []string{"created_at.desc"}, reqs[0].Query["order"])

	full := books[0]
	assert.Equal(t, "Dune", full.Title)
	assert.Equal(t, 412, full.TotalPages)
	assert.Equal(t, "reading", full.Status)
	assert.Equal(t, entities.FileFormatFB2, full.FileFormat)
	assert.Equal(t, 4.5, full.Rating)
	require.NotNil(t, full.StartDate)
	assert.Equal(t, "2024-03-01", full.StartDate.Format("2006-01-02"))
	assert.Nil(t, full.EndDate)

	bare := books[1]
	assert.Equal(t, "", bare.Description)
	assert.Equal(t, "want to read", bare.Status)
	assert.Equal(t, entities.FileFormatEPUB, bare.FileFormat)
	assert.Zero(t, bare.TotalPages)
}

func TestListBooks_NoStatusFilter(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `[]`)
	})

	books, err := svc.ListBooks(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.NotContains(t, fake.all()[0].Query, "status")
}

func TestGetBook(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		if r.URL.Query().Get("id") == "eq.b1" {
			writeJSON(w, http.StatusOK, `[`+bookJSON+`]`)
			return
		}
		writeJSON(w, http.StatusOK, `[]`)
	})

	book, err := svc.GetBook(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", book.ID)

	_, err = svc.GetBook(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetBook(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, fake.all(), 2)
}

func TestCreateBook(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusCreated, `[{"id":"new","title":"Dune","status":"planned","file_url":"https://x/a.pdf"}]`)
	})

	start := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	book, err := svc.CreateBook(context.Background(), NewBook{
		Title:     "Dune",
		FileURL:   "https://x/a.pdf",
		StartDate: &start,
	})
	require.NoError(t, err)
	assert.Equal(t, "new", book.ID)
	assert.Equal(t, entities.FileFormatPDF, book.FileFormat)

	req := fake.all()[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "return=representation", req.Prefer)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.Equal(t, "user-1", sent["user_id"])
	assert.Equal(t, "planned", sent["status"])
	assert.Equal(t, "PDF", sent["file_format"])
	assert.Equal(t, "2024-05-02", sent["start_date"])
	assert.Nil(t, sent["end_date"])
	assert.NotContains(t, sent, "id")
}

func TestCreateBook_Validation(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		t.Errorf("unexpected request")
	})

	_, err := svc.CreateBook(context.Background(), NewBook{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "title")

	_, err = svc.CreateBook(context.Background(), NewBook{Title: "x", Rating: 7})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "rating")

	assert.Empty(t, fake.all())
}

func TestAddBook_Pipeline(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/storage/v1/object/"):
			writeJSON(w, http.StatusOK, `{"Key":"ok"}`)
		case r.URL.Path == "/rest/v1/books":
			writeJSON(w, http.StatusCreated, `[`+body+`]`)
		}
	})

	pdf := []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}

	book, err := svc.AddBook(context.Background(),
		NewBook{Title: "Manual"},
		Upload{Name: "manual.pdf", Body: bytes.NewReader(pdf)},
		&Upload{Body: bytes.NewReader(jpeg)},
	)
	require.NoError(t, err)

	reqs := fake.all()
	require.Len(t, reqs, 3)

	assert.True(t, strings.HasPrefix(reqs[0].Path, "/storage/v1/object/books/user-1/"))
	assert.True(t, strings.HasSuffix(reqs[0].Path, ".pdf"))
	assert.Equal(t, "application/pdf", reqs[0].Type)
	assert.Equal(t, string(pdf), reqs[0].Body)

	assert.True(t, strings.HasPrefix(reqs[1].Path, "/storage/v1/object/covers/user-1/"))
	assert.True(t, strings.HasSuffix(reqs[1].Path, ".jpg"))
	assert.Equal(t, "image/jpeg", reqs[1].Type)

	assert.Equal(t, "/rest/v1/books", reqs[2].Path)
	assert.Contains(t, book.FileURL, "/storage/v1/object/public/books/user-1/")
	assert.Contains(t, book.CoverPath, "/storage/v1/object/public/covers/user-1/")
	assert.Equal(t, entities.FileFormatPDF, book.FileFormat)
	assert.Equal(t, "planned", book.Status)
}

func TestAddBook_StopsOnFailedStep(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		if strings.HasPrefix(r.URL.Path, "/storage/v1/object/covers/") {
			writeJSON(w, http.StatusBadRequest, `{"message":"bad cover"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := svc.AddBook(context.Background(),
		NewBook{Title: "T"},
		Upload{Name: "t.epub", Body: strings.NewReader("book")},
		&Upload{Name: "c.png", Body: strings.NewReader("cover")},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload cover")
	assert.Equal(t, 0, fake.count(http.MethodPost, "/rest/v1/books"))

	removed := deletedObjects(fake)
	require.Len(t, removed, 1, "the uploaded book file is removed")
	assert.True(t, strings.HasPrefix(removed[0], "/storage/v1/object/books/user-1/"))
}

func TestAddBook_RemovesUploadsWhenCreateFails(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		if r.URL.Path == "/rest/v1/books" {
			writeJSON(w, http.StatusInternalServerError, `{"message":"boom"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := svc.AddBook(context.Background(),
		NewBook{Title: "T"},
		Upload{Name: "t.epub", Body: strings.NewReader("book")},
		&Upload{Name: "c.png", Body: strings.NewReader("cover")},
	)
	require.Error(t, err)

	removed := deletedObjects(fake)
	require.Len(t, removed, 2)
	assert.True(t, strings.HasPrefix(removed[0], "/storage/v1/object/books/user-1/"))
	assert.True(t, strings.HasPrefix(removed[1], "/storage/v1/object/covers/user-1/"))
}

func TestAddBook_FailedCleanupKeepsOriginalError(t *testing.T) {
	svc, _ := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.URL.Path == "/rest/v1/books":
			writeJSON(w, http.StatusConflict, `{"message":"duplicate"}`)
		case r.Method == http.MethodDelete:
			writeJSON(w, http.StatusForbidden, `{"message":"no"}`)
		default:
			writeJSON(w, http.StatusOK, `{}`)
		}
	})

	_, err := svc.AddBook(context.Background(),
		NewBook{Title: "T"},
		Upload{Name: "t.epub", Body: strings.NewReader("book")},
		nil,
	)
	var statusErr *backend.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
}

func TestAddBook_FileFormatFromOriginalName(t *testing.T) {
	zipHead := []byte{'P', 'K', 0x03, 0x04, 0x14, 0x00, 0x00, 0x00, 0x08, 0x00}

	tests := []struct {
		name   string
		upload Upload
		want   entities.FileFormat
	}{
		{"zipped fb2", Upload{Name: "war.fb2.zip", Body: bytes.NewReader(zipHead)}, entities.FileFormatFB2},
		{"plain zip", Upload{Name: "war.zip", Body: bytes.NewReader(zipHead)}, entities.FileFormatEPUB},
		{"fb2", Upload{Name: "War.FB2", Body: strings.NewReader("<FictionBook>")}, entities.FileFormatFB2},
		{"no name uses sniffed type", Upload{Body: strings.NewReader("%PDF-1.7\n")}, entities.FileFormatPDF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
				if r.URL.Path == "/rest/v1/books" {
					writeJSON(w, http.StatusCreated, `[`+body+`]`)
					return
				}
				writeJSON(w, http.StatusOK, `{}`)
			})

			book, err := svc.AddBook(context.Background(), NewBook{Title: "War"}, tt.upload, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, book.FileFormat)

			reqs := fake.all()
			require.Len(t, reqs, 2)
			var sent map[string]any
			require.NoError(t, json.Unmarshal([]byte(reqs[1].Body), &sent))
			assert.Equal(t, string(tt.want), sent["file_format"])
		})
	}
}

func deletedObjects(fake *fakeBackend) []string {
	var paths []string
	for _, r := range fake.all() {
		if r.Method == http.MethodDelete && strings.HasPrefix(r.Path, "/storage/v1/object/") {
			paths = append(paths, r.Path)
		}
	}
	return paths
}

func TestAddBook_WithoutFileBody(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		t.Errorf("unexpected request")
	})

	_, err := svc.AddBook(context.Background(), NewBook{Title: "T"}, Upload{}, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, fake.all())
}

func TestUpdateTotalPages(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, svc.UpdateTotalPages(context.Background(), "b1", 300))

	req := fake.all()[0]
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, []string{"eq.b1"}, req.Query["id"])
	assert.JSONEq(t, `{"total_pages":300}`, req.Body)
	assert.Equal(t, "return=minimal", req.Prefer)

	assert.ErrorIs(t, svc.UpdateTotalPages(context.Background(), "b1", -3), ErrInvalidInput)
}

func TestUpdateBook(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		if r.URL.Query().Get("id") == "eq.gone" {
			writeJSON(w, http.StatusOK, `[]`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"id":"b1","title":"New title","status":"finished"}]`)
	})

	title := "New title"
	status := "finished"
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	book, err := svc.UpdateBook(context.Background(), "b1", BookPatch{Title: &title, Status: &status, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, "New title", book.Title)
	assert.JSONEq(t, `{"title":"New title","status":"finished","end_date":"2024-06-30"}`, fake.all()[0].Body)

	_, err = svc.UpdateBook(context.Background(), "gone", BookPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateBook(context.Background(), "b1", BookPatch{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	empty := ""
	_, err = svc.UpdateBook(context.Background(), "b1", BookPatch{Title: &empty})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteBook(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, svc.DeleteBook(context.Background(), "b1"))

	reqs := fake.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/rest/v1/book_shelf", reqs[0].Path)
	assert.Equal(t, []string{"eq.b1"}, reqs[0].Query["book_id"])
	assert.Equal(t, "/rest/v1/books", reqs[1].Path)
	assert.Equal(t, http.MethodDelete, reqs[1].Method)
}
