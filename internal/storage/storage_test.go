package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendUploader_Upload(t *testing.T) {
	var gotPath, gotType, gotAuth string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"Key":"books/u1/file.epub"}`))
	}))
	defer server.Close()

	uploader := NewBackendUploader(backend.NewClient(backend.Options{BaseURL: server.URL, AnonKey: "anon"}))
	stored, err := uploader.Upload(context.Background(), "tok", Object{
		Bucket:      BucketBooks,
		Name:        "u1/file.epub",
		ContentType: "application/epub+zip",
		Body:        strings.NewReader("payload"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/books/u1/file.epub", gotPath)
	assert.Equal(t, "application/epub+zip", gotType)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "payload", string(gotBody))

	assert.Equal(t, "books/u1/file.epub", stored.Path)
	assert.Equal(t, server.URL+"/storage/v1/object/public/books/u1/file.epub", stored.PublicURL)
}

func TestBackendUploader_Remove(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if strings.HasSuffix(r.URL.Path, "missing.epub") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	uploader := NewBackendUploader(backend.NewClient(backend.Options{BaseURL: server.URL}))

	require.NoError(t, uploader.Remove(context.Background(), "tok", BucketBooks, "u1/file.epub"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/storage/v1/object/books/u1/file.epub", gotPath)

	err := uploader.Remove(context.Background(), "tok", BucketBooks, "u1/missing.epub")
	var statusErr *backend.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	assert.Error(t, uploader.Remove(context.Background(), "tok", "", "u1/file.epub"))
}

func TestBackendUploader_UploadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		_, _ = w.Write([]byte(`{"message":"too large"}`))
	}))
	defer server.Close()

	uploader := NewBackendUploader(backend.NewClient(backend.Options{BaseURL: server.URL}))
	_, err := uploader.Upload(context.Background(), "tok", Object{
		Bucket: BucketCovers,
		Name:   "u1/c.jpg",
		Body:   strings.NewReader("x"),
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, backend.StatusCode(err))

	_, err = uploader.Upload(context.Background(), "tok", Object{Bucket: BucketCovers})
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	name := ObjectName("user-1", "PDF")
	assert.True(t, strings.HasPrefix(name, "user-1/"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.NotEqual(t, name, ObjectName("user-1", ".pdf"))
}

func TestInspect(t *testing.T) {
	pdf := []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0x01}, 64)...)
	binary := bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x03}, 2048)

	tests := []struct {
		name     string
		fileName string
		content  []byte
		bucket   string
		wantType string
		wantExt  string
	}{
		{name: "pdf by content", fileName: "", content: pdf, bucket: BucketBooks, wantType: "application/pdf", wantExt: ".pdf"},
		{name: "name extension wins", fileName: "Book.FB2", content: pdf, bucket: BucketBooks, wantType: "application/pdf", wantExt: ".fb2"},
		{name: "unknown book falls back", fileName: "", content: binary, bucket: BucketBooks, wantType: "application/epub+zip", wantExt: ".epub"},
		{name: "unknown cover falls back", fileName: "", content: binary, bucket: BucketCovers, wantType: "image/jpeg", wantExt: ".jpg"},
		{name: "jpeg cover", fileName: "", content: jpeg, bucket: BucketCovers, wantType: "image/jpeg", wantExt: ".jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, err := Inspect(tt.fileName, bytes.NewReader(tt.content), tt.bucket)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, content.ContentType)
			assert.Equal(t, tt.wantExt, content.Extension)

			// The full stream survives sniffing
			all, err := io.ReadAll(content.Reader)
			require.NoError(t, err)
			assert.Equal(t, tt.content, all)
		})
	}
}

func TestLocalSource_Open(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "novel.epub"), []byte("content"), 0o600))

	src := LocalSource{Root: dir}

	f, err := src.Open(context.Background(), "novel.epub")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "novel.epub", f.Name)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	f2, err := LocalSource{}.Open(context.Background(), "file://"+filepath.Join(dir, "novel.epub"))
	require.NoError(t, err)
	f2.Close()

	_, err = src.Open(context.Background(), "missing.epub")
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = LocalSource{}.Open(context.Background(), dir)
	assert.Error(t, err)

	_, err = src.Open(context.Background(), "")
	assert.Error(t, err)
}
