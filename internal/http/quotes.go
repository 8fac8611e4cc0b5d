package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mrlokans/readshelf/internal/library"
)

type QuotesController struct {
	store QuoteStore
}

func NewQuotesController(store QuoteStore) *QuotesController {
	return &QuotesController{store: store}
}

// ListQuotes returns the quotes of a book, newest first.
// GET /api/books/:id/quotes
func (qc *QuotesController) ListQuotes(c *gin.Context) {
	quotes, err := qc.store.ListQuotes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLibraryError(c, err, "list quotes")
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes, "count": len(quotes)})
}

// AddQuote saves a quote for the book in the path.
// POST /api/books/:id/quotes
func (qc *QuotesController) AddQuote(c *gin.Context) {
	var in library.NewQuote
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	in.BookID = c.Param("id")

	quote, err := qc.store.AddQuote(c.Request.Context(), in)
	if err != nil {
		respondLibraryError(c, err, "add quote")
		return
	}
	c.JSON(http.StatusCreated, quote)
}

// DeleteQuote removes a quote.
// DELETE /api/quotes/:id
func (qc *QuotesController) DeleteQuote(c *gin.Context) {
	if err := qc.store.DeleteQuote(c.Request.Context(), c.Param("id")); err != nil {
		respondLibraryError(c, err, "delete quote")
		return
	}
	respondSuccess(c, "quote deleted")
}
