package library

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListShelves_CanonicalSchemaWithLinks(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		switch r.URL.Path {
		case "/rest/v1/shelves":
			writeJSON(w, http.StatusOK, `[{"shelf_id":"s1","shelf_name":"N"},{"shelf_id":"s2","shelf_name":"Empty","shelf_description":"nothing yet"}]`)
		case "/rest/v1/book_shelf":
			writeJSON(w, http.StatusOK, `[{"book_id":"b1","shelf_id":"s1"},{"book_id":"b7","shelf_id":"s1"}]`)
		}
	})

	shelves, err := svc.ListShelves(context.Background())
	require.NoError(t, err)
	require.Len(t, shelves, 2)

	assert.Equal(t, "s1", shelves[0].ID)
	assert.Equal(t, "N", shelves[0].Name)
	assert.Equal(t, "", shelves[0].Description)
	assert.Equal(t, []string{"b1", "b7"}, shelves[0].BookIDs)

	assert.Equal(t, "nothing yet", shelves[1].Description)
	assert.Equal(t, []string{}, shelves[1].BookIDs)

	reqs := fake.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, []string{"eq.user-1"}, reqs[0].Query["user_id"])
	assert.Equal(t, []string{`in.("s1","s2")`}, reqs[1].Query["shelf_id"])
}

func TestListShelves_Empty(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `[]`)
	})

	shelves, err := svc.ListShelves(context.Background())
	require.NoError(t, err)
	assert.Empty(t, shelves)
	assert.Equal(t, 0, fake.count(http.MethodGet, "/rest/v1/book_shelf"))
}

func TestListShelves_LegacySchemaIsRejected(t *testing.T) {
	svc, _ := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusOK, `[{"id":"s1","name":"Old","description":"d"}]`)
	})

	_, err := svc.ListShelves(context.Background())
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "shelf", schemaErr.Entity)
	assert.Equal(t, []string{"shelf_id", "shelf_name"}, schemaErr.Missing)
	assert.Equal(t, []string{"description", "id", "name"}, schemaErr.Legacy)
}

func TestGetShelf(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.URL.Path == "/rest/v1/shelves" && r.URL.Query().Get("shelf_id") == "eq.s1":
			writeJSON(w, http.StatusOK, `[{"shelf_id":"s1","shelf_name":"Fav","user_id":"user-1"}]`)
		case r.URL.Path == "/rest/v1/shelves":
			writeJSON(w, http.StatusOK, `[]`)
		default:
			writeJSON(w, http.StatusOK, `[{"book_id":"b3","shelf_id":"s1"}]`)
		}
	})

	shelf, err := svc.GetShelf(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Fav", shelf.Name)
	assert.Equal(t, "user-1", shelf.UserID)
	assert.Equal(t, []string{"b3"}, shelf.BookIDs)
	assert.True(t, shelf.Contains("b3"))

	_, err = svc.GetShelf(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, fake.count(http.MethodGet, "/rest/v1/book_shelf"))
}

func TestCreateShelf(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusCreated, `[{"shelf_id":"s9","shelf_name":"Sci-fi","shelf_description":"","user_id":"user-1"}]`)
	})

	shelf, err := svc.CreateShelf(context.Background(), NewShelf{Name: "  Sci-fi "})
	require.NoError(t, err)
	assert.Equal(t, "s9", shelf.ID)
	assert.Empty(t, shelf.BookIDs)

	req := fake.all()[0]
	assert.JSONEq(t, `{"user_id":"user-1","shelf_name":"Sci-fi","shelf_description":""}`, req.Body)
	assert.Equal(t, "return=representation", req.Prefer)
}

func TestCreateShelf_EmptyName(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		t.Errorf("unexpected request")
	})

	for _, name := range []string{"", "   "} {
		_, err := svc.CreateShelf(context.Background(), NewShelf{Name: name})
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Empty(t, fake.all())
}

func TestUpdateShelf(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		if r.Method == http.MethodPatch {
			writeJSON(w, http.StatusOK, `[{"shelf_id":"s1","shelf_name":"Renamed"}]`)
			return
		}
		writeJSON(w, http.StatusOK, `[]`)
	})

	name := "Renamed"
	shelf, err := svc.UpdateShelf(context.Background(), "s1", ShelfPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", shelf.Name)
	assert.JSONEq(t, `{"shelf_name":"Renamed"}`, fake.all()[0].Body)

	blank := " "
	_, err = svc.UpdateShelf(context.Background(), "s1", ShelfPatch{Name: &blank})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateShelf(context.Background(), "s1", ShelfPatch{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteShelf_RemovesLinksFirst(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, svc.DeleteShelf(context.Background(), "s1"))

	reqs := fake.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/rest/v1/book_shelf", reqs[0].Path)
	assert.Equal(t, []string{"eq.s1"}, reqs[0].Query["shelf_id"])
	assert.Equal(t, "/rest/v1/shelves", reqs[1].Path)
}

func TestAddBookToShelf_Idempotent(t *testing.T) {
	linked := false
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		if linked {
			writeJSON(w, http.StatusConflict, `{"code":"23505","message":"duplicate key value"}`)
			return
		}
		linked = true
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, svc.AddBookToShelf(context.Background(), "b1", "s1"))
	require.NoError(t, svc.AddBookToShelf(context.Background(), "b1", "s1"))

	reqs := fake.all()
	require.Len(t, reqs, 2)
	assert.JSONEq(t, `{"book_id":"b1","shelf_id":"s1"}`, reqs[0].Body)
	assert.Equal(t, "return=minimal", reqs[0].Prefer)
}

func TestAddBookToShelf_OtherErrorsFail(t *testing.T) {
	svc, _ := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusForbidden, `{"message":"rls"}`)
	})
	assert.Error(t, svc.AddBookToShelf(context.Background(), "b1", "s1"))
}

func TestRemoveBookFromShelf_Idempotent(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		writeJSON(w, http.StatusNotFound, `{"message":"no rows"}`)
	})

	require.NoError(t, svc.RemoveBookFromShelf(context.Background(), "b1", "missing"))

	req := fake.all()[0]
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, []string{"eq.b1"}, req.Query["book_id"])
	assert.Equal(t, []string{"eq.missing"}, req.Query["shelf_id"])

	assert.ErrorIs(t, svc.RemoveBookFromShelf(context.Background(), "", "s1"), ErrInvalidInput)
}

func TestListShelfBooks(t *testing.T) {
	svc, fake := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		switch r.URL.Path {
		case "/rest/v1/book_shelf":
			if r.URL.Query().Get("shelf_id") == `in.("empty")` {
				writeJSON(w, http.StatusOK, `[]`)
				return
			}
			writeJSON(w, http.StatusOK, `[{"book_id":"b1","shelf_id":"s1"},{"book_id":"b2","shelf_id":"s1"}]`)
		case "/rest/v1/books":
			writeJSON(w, http.StatusOK, `[{"id":"b1","title":"One"},{"id":"b2","title":"Two"}]`)
		}
	})

	books, err := svc.ListShelfBooks(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, []string{`in.("b1","b2")`}, fake.all()[1].Query["id"])

	books, err = svc.ListShelfBooks(context.Background(), "empty")
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Equal(t, 1, fake.count(http.MethodGet, "/rest/v1/books"))
}

func TestDecodeShelf_PartialCanonical(t *testing.T) {
	_, err := decodeShelf([]byte(`{"shelf_id":"s1","name":"N"}`))
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"shelf_name"}, schemaErr.Missing)
	assert.Equal(t, []string{"name"}, schemaErr.Legacy)

	shelf, err := decodeShelf([]byte(`{"shelf_id":"s1","shelf_name":"N"}`))
	require.NoError(t, err)
	assert.Equal(t, "s1", shelf.ID)
	assert.Equal(t, "N", shelf.Name)
	assert.Equal(t, "", shelf.Description)
}
