package http

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mrlokans/readshelf/internal/library"
	"github.com/pkg/errors"
)

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{store: store}
}

// ListBooks returns the caller's books, newest first.
// GET /api/books?status=reading
func (bc *BooksController) ListBooks(c *gin.Context) {
	books, err := bc.store.ListBooks(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondLibraryError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// GetBook returns one book.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	book, err := bc.store.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLibraryError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook stores a record for a file that is already hosted.
// POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var in library.NewBook
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := bc.store.CreateBook(c.Request.Context(), in)
	if err != nil {
		respondLibraryError(c, err, "create book")
		return
	}
	c.JSON(http.StatusCreated, book)
}

type uploadForm struct {
	Title       string  `form:"title"`
	Author      string  `form:"author"`
	Description string  `form:"description"`
	TotalPages  int     `form:"total_pages"`
	Status      string  `form:"status"`
	Rating      float64 `form:"rating"`
}

// UploadBook stores the book file, the optional cover and then the record.
// POST /api/books/upload (multipart: file, cover, title, author, ...)
func (bc *BooksController) UploadBook(c *gin.Context) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		respondBadRequest(c, "invalid form fields")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return
	}
	file, err := openPart(fileHeader)
	if err != nil {
		respondBadRequest(c, "cannot read file")
		return
	}
	defer file.Close()

	var cover *library.Upload
	if coverHeader, err := c.FormFile("cover"); err == nil {
		coverFile, err := openPart(coverHeader)
		if err != nil {
			respondBadRequest(c, "cannot read cover")
			return
		}
		defer coverFile.Close()
		cover = &library.Upload{Name: coverHeader.Filename, Body: coverFile}
	}

	in := library.NewBook{
		Title:       form.Title,
		Author:      form.Author,
		Description: form.Description,
		TotalPages:  form.TotalPages,
		Status:      form.Status,
		Rating:      form.Rating,
	}

	book, err := bc.store.AddBook(c.Request.Context(), in, library.Upload{Name: fileHeader.Filename, Body: file}, cover)
	if err != nil {
		respondLibraryError(c, err, "upload book")
		return
	}
	c.JSON(http.StatusCreated, book)
}

func openPart(h *multipart.FileHeader) (multipart.File, error) {
	f, err := h.Open()
	return f, errors.Wrapf(err, "open %s", h.Filename)
}

// UpdateBook changes the fields present in the body.
// PATCH /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	var patch library.BookPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := bc.store.UpdateBook(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondLibraryError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

type totalPagesRequest struct {
	TotalPages *int `json:"total_pages"`
}

// UpdateTotalPages sets the page count of a book.
// PUT /api/books/:id/pages
func (bc *BooksController) UpdateTotalPages(c *gin.Context) {
	var req totalPagesRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TotalPages == nil {
		respondBadRequest(c, "total_pages is required")
		return
	}

	if err := bc.store.UpdateTotalPages(c.Request.Context(), c.Param("id"), *req.TotalPages); err != nil {
		respondLibraryError(c, err, "update total pages")
		return
	}
	respondSuccess(c, "total pages updated")
}

type progressRequest struct {
	Page *int `json:"page"`
}

// UpdateProgress records the current page and reports whether the backend
// confirmed it.
// PUT /api/books/:id/progress
func (bc *BooksController) UpdateProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Page == nil {
		respondBadRequest(c, "page is required")
		return
	}

	result, err := bc.store.UpdateCurrentPage(c.Request.Context(), c.Param("id"), *req.Page)
	if err != nil {
		respondLibraryError(c, err, "update progress")
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteBook removes a book and its shelf links.
// DELETE /api/books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	if err := bc.store.DeleteBook(c.Request.Context(), c.Param("id")); err != nil {
		respondLibraryError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted")
}
