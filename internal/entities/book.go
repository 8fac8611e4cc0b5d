package entities

import (
	"net/url"
	"path"
	"strings"
	"time"
)

type FileFormat string

const (
	FileFormatPDF  FileFormat = "PDF"
	FileFormatEPUB FileFormat = "EPUB"
	FileFormatFB2  FileFormat = "FB2"
	FileFormatTXT  FileFormat = "TXT"
)

// DefaultFileFormat is used when the file URL carries no recognizable extension.
const DefaultFileFormat = FileFormatEPUB

// Book is a reading-list entry owned by the backend. Instances are built from
// a response, handed to the caller and discarded.
type Book struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Description string     `json:"description"`
	TotalPages  int        `json:"total_pages"`
	CurrentPage int        `json:"current_page"`
	Status      string     `json:"status"` // Free-text label, not a closed set
	CoverPath   string     `json:"cover_path,omitempty"`
	FileURL     string     `json:"file_url,omitempty"`
	FileFormat  FileFormat `json:"file_format"`
	Rating      float64    `json:"rating"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Progress returns the read fraction in [0, 1].
func (b Book) Progress() float64 {
	if b.TotalPages <= 0 || b.CurrentPage <= 0 {
		return 0
	}
	if b.CurrentPage >= b.TotalPages {
		return 1
	}
	return float64(b.CurrentPage) / float64(b.TotalPages)
}

// FileFormatFromURL infers the book format from the extension of a file URL.
// Zip archives are FB2 when "fb2" appears anywhere in the URL. Anything
// unrecognized falls back to DefaultFileFormat.
func FileFormatFromURL(fileURL string) FileFormat {
	p := fileURL
	if u, err := url.Parse(fileURL); err == nil && u.Path != "" {
		p = u.Path
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".pdf":
		return FileFormatPDF
	case ".epub":
		return FileFormatEPUB
	case ".fb2":
		return FileFormatFB2
	case ".txt":
		return FileFormatTXT
	case ".zip":
		if strings.Contains(strings.ToLower(fileURL), "fb2") {
			return FileFormatFB2
		}
	}
	return DefaultFileFormat
}

// ParseFileFormat normalizes a stored format label. Unknown labels map to DefaultFileFormat.
func ParseFileFormat(s string) FileFormat {
	switch FileFormat(strings.ToUpper(strings.TrimSpace(s))) {
	case FileFormatPDF:
		return FileFormatPDF
	case FileFormatFB2:
		return FileFormatFB2
	case FileFormatTXT:
		return FileFormatTXT
	case FileFormatEPUB:
		return FileFormatEPUB
	}
	return DefaultFileFormat
}
