package config

// Default paths for local state
const (
	// DefaultDatabasePath is the default path for the local session database.
	// The deferred task queue lives next to it with a "-tasks" suffix.
	DefaultDatabasePath = "./readshelf.db"
)
