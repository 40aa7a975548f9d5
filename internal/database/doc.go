// Package database provides the data access layer for the application.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── books/           # Catalog store: books and their single note
//	└── users/           # Credential store: administrators
//
// # Schema
//
//	users(id, email UNIQUE, password_hash, created_at)
//	book(id, book_title, author_name, isbn, date_read, score, book_review, ...)
//	note(id, book_id UNIQUE REFERENCES book(id), note_content)
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./bookshelf.db", logger)
//
//	booksRepo := books.NewRepository(db.DB)
//	usersRepo := users.NewRepository(db.DB)
//
// Every multi-row write in books runs inside a single transaction, so a book
// never exists without the note it was created with and a note never outlives
// its book.
package database
