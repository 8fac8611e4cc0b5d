package http

// RouterConfig contains the dependencies of the HTTP gateway.
type RouterConfig struct {
	Books   BookStore
	Quotes  QuoteStore
	Shelves ShelfStore

	// SignIn enables the /api/auth routes when set
	SignIn        SignInService
	SignInLimiter *SignInLimiter

	// Backend is probed by /health
	Backend Pinger

	Version string

	// MaxUploadBytes caps multipart bodies kept in memory (default 32 MiB)
	MaxUploadBytes int64
}
