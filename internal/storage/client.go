// Package storage uploads book files and covers to the backend's object
// storage and resolves local file references into byte streams.
package storage

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/mrlokans/readshelf/internal/backend"
	"github.com/pkg/errors"
)

// Buckets known to the backend
const (
	BucketBooks  = "books"
	BucketCovers = "covers"
)

const objectPathPrefix = "/storage/v1/object/"

// Object is a stream ready to be uploaded.
type Object struct {
	Bucket      string
	Name        string // e.g. "<user id>/<uuid>.epub"
	ContentType string
	Body        io.Reader
}

// StoredObject describes an uploaded object.
type StoredObject struct {
	Bucket    string
	Name      string
	Path      string // "<bucket>/<name>"
	PublicURL string
}

// Uploader writes objects to storage on behalf of the token's owner.
type Uploader interface {
	Upload(ctx context.Context, token string, obj Object) (*StoredObject, error)
	Remove(ctx context.Context, token, bucket, name string) error
}

// BackendUploader uploads through the backend's storage endpoint.
type BackendUploader struct {
	client *backend.Client
}

func NewBackendUploader(client *backend.Client) *BackendUploader {
	return &BackendUploader{client: client}
}

// Upload streams obj.Body as the raw request body.
func (u *BackendUploader) Upload(ctx context.Context, token string, obj Object) (*StoredObject, error) {
	if obj.Bucket == "" || obj.Name == "" {
		return nil, errors.New("upload: bucket and name are required")
	}
	if obj.Body == nil {
		return nil, errors.New("upload: empty body")
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := u.client.Do(ctx, backend.Request{
		Method:      http.MethodPost,
		Path:        objectPathPrefix + escapePath(obj.Bucket+"/"+obj.Name),
		Token:       token,
		Body:        obj.Body,
		ContentType: contentType,
		Class:       backend.ClassUpload,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "upload %s/%s", obj.Bucket, obj.Name)
	}

	return &StoredObject{
		Bucket:    obj.Bucket,
		Name:      obj.Name,
		Path:      obj.Bucket + "/" + obj.Name,
		PublicURL: PublicURL(u.client.BaseURL(), obj.Bucket, obj.Name),
	}, nil
}

// Remove deletes an object.
func (u *BackendUploader) Remove(ctx context.Context, token, bucket, name string) error {
	if bucket == "" || name == "" {
		return errors.New("remove: bucket and name are required")
	}
	_, err := u.client.Do(ctx, backend.Request{
		Method: http.MethodDelete,
		Path:   objectPathPrefix + escapePath(bucket+"/"+name),
		Token:  token,
		Class:  backend.ClassWrite,
	})
	if err != nil {
		return errors.Wrapf(err, "remove %s/%s", bucket, name)
	}
	return nil
}

// PublicURL returns the public download URL of an object.
func PublicURL(baseURL, bucket, name string) string {
	return strings.TrimRight(baseURL, "/") + objectPathPrefix + "public/" + escapePath(bucket+"/"+name)
}

// ObjectName returns a collision-free object name under the user's folder.
func ObjectName(userID, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return userID + "/" + uuid.New().String() + strings.ToLower(ext)
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
