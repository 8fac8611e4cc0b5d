package http

import (
	"github.com/gin-gonic/gin"
)

const defaultMaxUploadBytes = 32 << 20

// NewRouter creates the gateway router. Routes under /api require a bearer
// token, which is forwarded to the backend unchanged.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	router.Use(securityHeaders())

	router.MaxMultipartMemory = cfg.MaxUploadBytes
	if router.MaxMultipartMemory <= 0 {
		router.MaxMultipartMemory = defaultMaxUploadBytes
	}

	health := NewHealthController(cfg.Backend, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	if cfg.SignIn != nil {
		authController := NewAuthController(cfg.SignIn, cfg.SignInLimiter)
		router.POST("/api/auth/sign-in", authController.SignIn)
		router.POST("/api/auth/refresh", authController.Refresh)
	}

	api := router.Group("/api", requireBearer())

	if cfg.Books != nil {
		books := NewBooksController(cfg.Books)
		api.GET("/books", books.ListBooks)
		api.POST("/books", books.CreateBook)
		api.POST("/books/upload", books.UploadBook)
		api.GET("/books/:id", books.GetBook)
		api.PATCH("/books/:id", books.UpdateBook)
		api.DELETE("/books/:id", books.DeleteBook)
		api.PUT("/books/:id/pages", books.UpdateTotalPages)
		api.PUT("/books/:id/progress", books.UpdateProgress)
	}

	if cfg.Quotes != nil {
		quotes := NewQuotesController(cfg.Quotes)
		api.GET("/books/:id/quotes", quotes.ListQuotes)
		api.POST("/books/:id/quotes", quotes.AddQuote)
		api.DELETE("/quotes/:id", quotes.DeleteQuote)
	}

	if cfg.Shelves != nil {
		shelves := NewShelvesController(cfg.Shelves)
		api.GET("/shelves", shelves.ListShelves)
		api.POST("/shelves", shelves.CreateShelf)
		api.GET("/shelves/:id", shelves.GetShelf)
		api.PATCH("/shelves/:id", shelves.UpdateShelf)
		api.DELETE("/shelves/:id", shelves.DeleteShelf)
		api.GET("/shelves/:id/books", shelves.ListShelfBooks)
		api.PUT("/shelves/:id/books/:bookId", shelves.AddBook)
		api.DELETE("/shelves/:id/books/:bookId", shelves.RemoveBook)
	}

	return router
}
