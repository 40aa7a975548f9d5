// Package books provides database operations for the catalog: books and
// their optional single note.
//
// Every write that touches both tables runs in one transaction, so a book is
// never left without the note it was submitted with and a note never
// outlives its book.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	list, err := repo.ListBooks(ctx, books.OrderScoreDesc)
package books

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookshelf/internal/entities"
)

var ErrNotFound = errors.New("book not found")

// SortOrder selects the ordering of ListBooks. Ties are always broken by
// ascending id, so equal scores, dates or titles list in insertion order.
type SortOrder string

const (
	OrderScoreDesc    SortOrder = "score-desc"
	OrderDateReadDesc SortOrder = "date-read-desc"
	OrderTitleAsc     SortOrder = "title-asc"
	OrderID           SortOrder = "id"
)

func (o SortOrder) clause() string {
	switch o {
	case OrderDateReadDesc:
		return "date_read DESC, id ASC"
	case OrderTitleAsc:
		// BINARY collation: byte-wise lexicographic, uppercase before lowercase
		return "book_title ASC, id ASC"
	case OrderID:
		return "id ASC"
	default:
		return "score DESC, id ASC"
	}
}

// Repository handles all book and note database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBooks returns every book in the given order. Unknown orders fall back
// to score descending.
func (r *Repository) ListBooks(ctx context.Context, order SortOrder) ([]entities.Book, error) {
	var list []entities.Book
	if err := r.db.WithContext(ctx).Order(order.clause()).Find(&list).Error; err != nil {
		return nil, errors.Wrapf(err, "list books by %s", order)
	}
	return list, nil
}

// ListBooksByID returns every book ordered by id, as the admin view shows them.
func (r *Repository) ListBooksByID(ctx context.Context) ([]entities.Book, error) {
	return r.ListBooks(ctx, OrderID)
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get book %d", id)
	}
	return &book, nil
}

// GetNoteByBookID returns the note of a book, or (nil, nil) when the book
// has none.
func (r *Repository) GetNoteByBookID(ctx context.Context, bookID uint) (*entities.Note, error) {
	var notes []entities.Note
	err := r.db.WithContext(ctx).Where("book_id = ?", bookID).Limit(1).Find(&notes).Error
	if err != nil {
		return nil, errors.Wrapf(err, "get note for book %d", bookID)
	}
	if len(notes) == 0 {
		return nil, nil
	}
	return &notes[0], nil
}

// CountNotes returns how many note rows reference the book.
func (r *Repository) CountNotes(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Note{}).Where("book_id = ?", bookID).Count(&count).Error
	if err != nil {
		return 0, errors.Wrapf(err, "count notes for book %d", bookID)
	}
	return count, nil
}

// CreateBookWithNote inserts the book and, when noteContent is not empty, its
// note. Both rows commit together or not at all. The assigned id is set on book.
func (r *Repository) CreateBookWithNote(ctx context.Context, book *entities.Book, noteContent string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(book).Error; err != nil {
			return errors.Wrap(err, "insert book")
		}
		if noteContent == "" {
			return nil
		}
		note := &entities.Note{BookID: book.ID, Content: noteContent}
		if err := tx.Omit(clause.Associations).Create(note).Error; err != nil {
			return errors.Wrapf(err, "insert note for book %d", book.ID)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "create book")
	}
	return nil
}

// UpdateBookAndUpsertNote replaces every mutable field of the book and sets
// its note content. The note is written with a single
// INSERT ... ON CONFLICT(book_id) DO UPDATE, so concurrent edits of the same
// book can never produce a second note row; the last writer wins.
func (r *Repository) UpdateBookAndUpsertNote(ctx context.Context, book *entities.Book, noteContent string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.Book{}).Where("id = ?", book.ID).Updates(map[string]any{
			"book_title":  book.Title,
			"author_name": book.Author,
			"isbn":        book.ISBN,
			"date_read":   book.DateRead,
			"score":       book.Score,
			"book_review": book.Review,
		})
		if result.Error != nil {
			return errors.Wrapf(result.Error, "update book %d", book.ID)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		note := &entities.Note{BookID: book.ID, Content: noteContent}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "book_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"note_content"}),
		}).Omit(clause.Associations).Create(note).Error
		if err != nil {
			return errors.Wrapf(err, "upsert note for book %d", book.ID)
		}
		return nil
	})
}

// DeleteBookAndNote removes the note of a book and then the book itself,
// in one transaction.
func (r *Repository) DeleteBookAndNote(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&entities.Note{}).Error; err != nil {
			return errors.Wrapf(err, "delete note for book %d", id)
		}

		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return errors.Wrapf(result.Error, "delete book %d", id)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
