package storage

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// sniffLimit is how much of a stream is buffered for MIME detection.
const sniffLimit = 3072

type bucketDefault struct {
	ext         string
	contentType string
}

var bucketDefaults = map[string]bucketDefault{
	BucketBooks:  {ext: ".epub", contentType: "application/epub+zip"},
	BucketCovers: {ext: ".jpg", contentType: "image/jpeg"},
}

// Content is an inspected stream. Reader yields the full original content.
type Content struct {
	Reader      io.Reader
	ContentType string
	Extension   string
}

// Inspect sniffs the MIME type of r and picks an extension. The extension
// comes from name when it has one, then from the detected type, then from the
// bucket default. Undetectable content takes the bucket's content type.
func Inspect(name string, r io.Reader, bucket string) (*Content, error) {
	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "read file head")
	}
	head = head[:n]

	fallback, ok := bucketDefaults[bucket]
	if !ok {
		fallback = bucketDefault{contentType: "application/octet-stream"}
	}

	detected := mimetype.Detect(head)
	contentType := detected.String()
	generic := isGeneric(detected)
	if generic {
		contentType = fallback.contentType
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" && !generic {
		ext = detected.Extension()
	}
	if ext == "" {
		ext = fallback.ext
	}

	return &Content{
		Reader:      io.MultiReader(bytes.NewReader(head), r),
		ContentType: contentType,
		Extension:   ext,
	}, nil
}

// isGeneric reports content the detector could not classify.
func isGeneric(m *mimetype.MIME) bool {
	return m.Is("application/octet-stream")
}
