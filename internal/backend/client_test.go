package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Options{
		BaseURL:    server.URL + "/",
		AnonKey:    "anon-key",
		HTTPClient: server.Client(),
	})
}

func TestClient_Do_Headers(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := client.Do(context.Background(), Request{
		Method:  http.MethodPatch,
		Path:    RestPath("books"),
		Query:   NewQuery().Eq("id", "b1").Values(),
		Token:   "jwt-token",
		JSON:    map[string]int{"current_page": 42},
		Prefer:  PreferMinimal,
		IfMatch: MatchAny,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, http.MethodPatch, got.Method)
	assert.Equal(t, "/rest/v1/books", got.URL.Path)
	assert.Equal(t, "eq.b1", got.URL.Query().Get("id"))
	assert.Equal(t, "anon-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer jwt-token", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "return=minimal", got.Header.Get("Prefer"))
	assert.Equal(t, "*", got.Header.Get("If-Match"))
	assert.JSONEq(t, `{"current_page":42}`, string(gotBody))
}

func TestClient_Do_RawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		assert.Equal(t, "%PDF-1.7", string(body))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.Do(context.Background(), Request{
		Method:      http.MethodPost,
		Path:        "/storage/v1/object/books/a.pdf",
		Body:        strings.NewReader("%PDF-1.7"),
		ContentType: "application/pdf",
		Class:       ClassUpload,
	})
	require.NoError(t, err)
}

func TestClient_Do_StatusError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad request", http.StatusBadRequest, `{"message":"invalid input syntax"}`},
		{"unauthorized", http.StatusUnauthorized, `{"message":"JWT expired"}`},
		{"conflict", http.StatusConflict, `{"code":"23505"}`},
		{"server error", http.StatusBadGateway, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: RestPath("books")})
			require.Error(t, err)

			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.body, se.Body)
			assert.True(t, IsStatus(err, tt.status))
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestClient_Do_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(Options{BaseURL: server.URL, AnonKey: "k"})
	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: RestPath("books")})

	var ne *NetworkError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, 0, StatusCode(err))
}

func TestClient_Do_ReadTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseURL:  server.URL,
		AnonKey:  "k",
		Timeouts: Timeouts{Read: 50 * time.Millisecond, Write: time.Minute},
	})

	_, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: RestPath("books")})
	var ne *NetworkError
	require.True(t, errors.As(err, &ne))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_DoJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": "b1", "title": "Dune"}})
	})

	var rows []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	err := client.DoJSON(context.Background(), Request{Method: http.MethodGet, Path: RestPath("books")}, &rows)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Dune", rows[0].Title)
}

func TestClient_TimeoutFor(t *testing.T) {
	client := NewClient(Options{Timeouts: Timeouts{Read: time.Second, Write: 2 * time.Second, Upload: 3 * time.Second}})

	assert.Equal(t, time.Second, client.timeoutFor(Request{Method: http.MethodGet}))
	assert.Equal(t, 2*time.Second, client.timeoutFor(Request{Method: http.MethodPost}))
	assert.Equal(t, 3*time.Second, client.timeoutFor(Request{Method: http.MethodPost, Class: ClassUpload}))
	assert.Equal(t, 2*time.Second, client.timeoutFor(Request{Method: http.MethodGet, Class: ClassWrite}))

	defaults := NewClient(Options{})
	assert.Equal(t, defaultReadTimeout, defaults.timeoutFor(Request{Method: http.MethodGet}))
}

func TestQuery(t *testing.T) {
	q := NewQuery().
		Eq("user_id", "u1").
		In("shelf_id", []string{"s1", "s,2"}).
		Order("created_at", true).
		Select("id", "title").
		Values()

	assert.Equal(t, "eq.u1", q.Get("user_id"))
	assert.Equal(t, `in.("s1","s,2")`, q.Get("shelf_id"))
	assert.Equal(t, "created_at.desc", q.Get("order"))
	assert.Equal(t, "id,title", q.Get("select"))
}
