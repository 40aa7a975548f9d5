package config

// Default paths for on-disk state
const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./bookshelf.db"

	// DefaultCoversDir is where cover images are cached, one file per ISBN
	DefaultCoversDir = "./public/images"

	// DefaultCoversBaseURL is the OpenLibrary covers endpoint addressed by ISBN
	DefaultCoversBaseURL = "https://covers.openlibrary.org/b/isbn"
)
