package library

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mrlokans/readshelf/internal/auth"
	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/mrlokans/readshelf/internal/dispatch"
	"github.com/mrlokans/readshelf/internal/entities"
	"github.com/mrlokans/readshelf/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// markingLoop flags the span during which the loop runs a posted closure.
type markingLoop struct {
	*dispatch.Loop
	active atomic.Bool
}

func (m *markingLoop) Post(fn func()) {
	m.Loop.Post(func() {
		m.active.Store(true)
		defer m.active.Store(false)
		fn()
	})
}

func TestAsyncService_CallbacksRunOnDeliveryLoop(t *testing.T) {
	svc, _ := newTestService(t, Options{}, func(w http.ResponseWriter, r *http.Request, body string) {
		switch {
		case r.URL.Path == "/rest/v1/books":
			writeJSON(w, http.StatusOK, `[{"id":"b1","title":"One"}]`)
		case r.URL.Path == "/rest/v1/quotes":
			writeJSON(w, http.StatusInternalServerError, `{"message":"boom"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/rest/v1/book_shelf":
			writeJSON(w, http.StatusConflict, `{}`)
		default:
			writeJSON(w, http.StatusOK, `[]`)
		}
	})

	loop := &markingLoop{Loop: dispatch.NewLoop()}
	d := dispatch.New(dispatch.Config{Workers: 4}, loop)
	async := NewAsyncService(svc, d)

	var (
		mu          sync.Mutex
		outsideLoop []string
		results     = map[string]string{}
		wg          sync.WaitGroup
	)
	mark := func(name, result string) {
		mu.Lock()
		defer mu.Unlock()
		if !loop.active.Load() {
			outsideLoop = append(outsideLoop, name)
		}
		results[name] = result
		wg.Done()
	}

	ctx := context.Background()
	wg.Add(4)
	async.ListBooks(ctx, "", dispatch.Callback[[]entities.Book]{
		OnSuccess: func([]entities.Book) { mark("books", "ok") },
		OnError:   func(error) { mark("books", "error") },
	})
	async.ListQuotes(ctx, "b1", dispatch.Callback[[]entities.Quote]{
		OnSuccess: func([]entities.Quote) { mark("quotes", "ok") },
		OnError:   func(error) { mark("quotes", "error") },
	})
	async.AddBookToShelf(ctx, "b1", "s1", dispatch.Callback[struct{}]{
		OnSuccess: func(struct{}) { mark("link", "ok") },
		OnError:   func(error) { mark("link", "error") },
	})
	async.CreateShelf(ctx, NewShelf{}, dispatch.Callback[*entities.Shelf]{
		OnSuccess: func(*entities.Shelf) { mark("shelf", "ok") },
		OnError:   func(error) { mark("shelf", "error") },
	})

	go func() {
		wg.Wait()
		loop.Stop()
	}()
	require.NoError(t, loop.Run(ctx))
	require.NoError(t, d.Shutdown(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, outsideLoop)
	assert.Equal(t, map[string]string{
		"books":  "ok",
		"quotes": "error",
		"link":   "ok",
		"shelf":  "error",
	}, results)
}

func TestAsyncService_ForwardsContextToken(t *testing.T) {
	var gotAuth atomic.Value
	fake := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request, body string) {
		gotAuth.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `[]`)
	})
	client := backend.NewClient(backend.Options{BaseURL: fake.server.URL, AnonKey: "anon"})
	svc := NewService(client, storage.NewBackendUploader(client), auth.ContextTokenSource{}, Options{})

	loop := dispatch.NewLoop()
	d := dispatch.New(dispatch.Config{Workers: 1}, loop)
	defer d.Shutdown(context.Background())
	async := NewAsyncService(svc, d)

	var gotErr error
	done := false
	async.ListShelves(auth.WithAccessToken(context.Background(), testToken), dispatch.Callback[[]entities.Shelf]{
		OnSuccess: func([]entities.Shelf) { done = true; loop.Stop() },
		OnError:   func(err error) { gotErr = err; loop.Stop() },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, loop.Run(ctx))
	require.NoError(t, gotErr)
	assert.True(t, done)
	assert.Equal(t, "Bearer "+testToken, gotAuth.Load())
}
