package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mrlokans/readshelf/internal/library"
)

type ShelvesController struct {
	store ShelfStore
}

func NewShelvesController(store ShelfStore) *ShelvesController {
	return &ShelvesController{store: store}
}

// GET /api/shelves
func (sc *ShelvesController) ListShelves(c *gin.Context) {
	shelves, err := sc.store.ListShelves(c.Request.Context())
	if err != nil {
		respondLibraryError(c, err, "list shelves")
		return
	}
	c.JSON(http.StatusOK, gin.H{"shelves": shelves, "count": len(shelves)})
}

// GET /api/shelves/:id
func (sc *ShelvesController) GetShelf(c *gin.Context) {
	shelf, err := sc.store.GetShelf(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLibraryError(c, err, "get shelf")
		return
	}
	c.JSON(http.StatusOK, shelf)
}

// POST /api/shelves
func (sc *ShelvesController) CreateShelf(c *gin.Context) {
	var in library.NewShelf
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	shelf, err := sc.store.CreateShelf(c.Request.Context(), in)
	if err != nil {
		respondLibraryError(c, err, "create shelf")
		return
	}
	c.JSON(http.StatusCreated, shelf)
}

// PATCH /api/shelves/:id
func (sc *ShelvesController) UpdateShelf(c *gin.Context) {
	var patch library.ShelfPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	shelf, err := sc.store.UpdateShelf(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondLibraryError(c, err, "update shelf")
		return
	}
	c.JSON(http.StatusOK, shelf)
}

// DELETE /api/shelves/:id
func (sc *ShelvesController) DeleteShelf(c *gin.Context) {
	if err := sc.store.DeleteShelf(c.Request.Context(), c.Param("id")); err != nil {
		respondLibraryError(c, err, "delete shelf")
		return
	}
	respondSuccess(c, "shelf deleted")
}

// ListShelfBooks returns the books placed on a shelf.
// GET /api/shelves/:id/books
func (sc *ShelvesController) ListShelfBooks(c *gin.Context) {
	books, err := sc.store.ListShelfBooks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLibraryError(c, err, "list shelf books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// AddBook places a book on a shelf. Adding it twice is not an error.
// PUT /api/shelves/:id/books/:bookId
func (sc *ShelvesController) AddBook(c *gin.Context) {
	if err := sc.store.AddBookToShelf(c.Request.Context(), c.Param("bookId"), c.Param("id")); err != nil {
		respondLibraryError(c, err, "add book to shelf")
		return
	}
	respondSuccess(c, "book added to shelf")
}

// RemoveBook takes a book off a shelf.
// DELETE /api/shelves/:id/books/:bookId
func (sc *ShelvesController) RemoveBook(c *gin.Context) {
	if err := sc.store.RemoveBookFromShelf(c.Request.Context(), c.Param("bookId"), c.Param("id")); err != nil {
		respondLibraryError(c, err, "remove book from shelf")
		return
	}
	respondSuccess(c, "book removed from shelf")
}
