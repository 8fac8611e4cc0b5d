package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrFileNotFound is returned when a file reference cannot be resolved.
var ErrFileNotFound = errors.New("file not found")

// File is an opened file reference.
type File struct {
	Name string
	io.ReadCloser
}

// Source resolves an opaque file reference to a byte stream.
type Source interface {
	Open(ctx context.Context, ref string) (*File, error)
}

// LocalSource opens references as filesystem paths, optionally prefixed with
// "file://". Relative paths are resolved against Root when set.
type LocalSource struct {
	Root string
}

func (s LocalSource) Open(_ context.Context, ref string) (*File, error) {
	path := strings.TrimPrefix(ref, "file://")
	if path == "" {
		return nil, errors.New("empty file reference")
	}
	if s.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.Root, path)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrFileNotFound, "%s", ref)
		}
		return nil, errors.Wrapf(err, "open %s", ref)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat %s", ref)
	}
	if info.IsDir() {
		f.Close()
		return nil, errors.Errorf("%s is a directory", ref)
	}

	return &File{Name: filepath.Base(path), ReadCloser: f}, nil
}
