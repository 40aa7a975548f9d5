// Package catalog implements the book catalog workflow: public listings and
// detail pages, and the admin operations that add, edit and delete books
// together with their notes.
//
// Listing the catalog schedules cover downloads for the listed ISBNs without
// waiting for them. Store failures are returned wrapped with the operation
// that failed; cover failures never reach this package.
package catalog

import (
	"context"
	"html/template"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/entities"
)

var ErrNotFound = errors.New("book not found")

// SortKey selects the ordering of a public listing.
type SortKey string

const (
	SortScore  SortKey = "score-desc"
	SortNewest SortKey = "date-read-desc"
	SortTitle  SortKey = "title-asc"
)

func (k SortKey) order() books.SortOrder {
	switch k {
	case SortNewest:
		return books.OrderDateReadDesc
	case SortTitle:
		return books.OrderTitleAsc
	default:
		return books.OrderScoreDesc
	}
}

// Store is the persistence the workflow runs against.
type Store interface {
	ListBooks(ctx context.Context, order books.SortOrder) ([]entities.Book, error)
	ListBooksByID(ctx context.Context) ([]entities.Book, error)
	GetBookByID(ctx context.Context, id uint) (*entities.Book, error)
	GetNoteByBookID(ctx context.Context, bookID uint) (*entities.Note, error)
	CreateBookWithNote(ctx context.Context, book *entities.Book, noteContent string) error
	UpdateBookAndUpsertNote(ctx context.Context, book *entities.Book, noteContent string) error
	DeleteBookAndNote(ctx context.Context, id uint) error
}

// CoverScheduler queues cover downloads. Schedule must return without
// waiting for any download.
type CoverScheduler interface {
	Schedule(isbns ...string)
}

// BookDetail is a book with its note, raw for edit forms and rendered for display.
type BookDetail struct {
	Book         entities.Book
	Note         string
	RenderedNote template.HTML
}

type Service struct {
	store  Store
	covers CoverScheduler
	logger *zap.Logger
}

func NewService(store Store, covers CoverScheduler, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		covers: covers,
		logger: logger.Named("catalog"),
	}
}

// ListBooks returns the catalog in the given order and schedules a cover
// download for every listed book whose cover is not cached.
func (s *Service) ListBooks(ctx context.Context, key SortKey) ([]entities.Book, error) {
	list, err := s.store.ListBooks(ctx, key.order())
	if err != nil {
		return nil, errors.Wrap(err, "list books")
	}

	if s.covers != nil && len(list) > 0 {
		isbns := make([]string, 0, len(list))
		for _, b := range list {
			if b.ISBN != "" {
				isbns = append(isbns, b.ISBN)
			}
		}
		s.covers.Schedule(isbns...)
	}

	return list, nil
}

// AdminBooks returns the catalog ordered by id, for the admin view.
func (s *Service) AdminBooks(ctx context.Context) ([]entities.Book, error) {
	list, err := s.store.ListBooksByID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list admin books")
	}
	return list, nil
}

// GetBookDetail returns a book and its note. A book without a note has an
// empty note; a missing book is ErrNotFound.
func (s *Service) GetBookDetail(ctx context.Context, id uint) (*BookDetail, error) {
	book, err := s.store.GetBookByID(ctx, id)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get book %d", id)
	}

	note, err := s.store.GetNoteByBookID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get note for book %d", id)
	}

	detail := &BookDetail{Book: *book}
	if note != nil {
		detail.Note = note.Content
		detail.RenderedNote = RenderNote(note.Content)
	}
	return detail, nil
}

// AddBook validates and stores a new book, with its note when one is given.
func (s *Service) AddBook(ctx context.Context, in BookInput) (uint, error) {
	book, note, err := in.toBook()
	if err != nil {
		return 0, err
	}

	if err := s.store.CreateBookWithNote(ctx, book, note); err != nil {
		return 0, errors.Wrap(err, "add book")
	}

	s.logger.Info("Book added", zap.Uint("book_id", book.ID), zap.String("title", book.Title))
	return book.ID, nil
}

// EditBook replaces every field of a book and sets its note, creating the
// note if the book had none.
func (s *Service) EditBook(ctx context.Context, id uint, in BookInput) error {
	book, note, err := in.toBook()
	if err != nil {
		return err
	}
	book.ID = id

	if err := s.store.UpdateBookAndUpsertNote(ctx, book, note); err != nil {
		if errors.Is(err, books.ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "edit book %d", id)
	}

	s.logger.Info("Book updated", zap.Uint("book_id", id))
	return nil
}

// DeleteBook removes a book and its note.
func (s *Service) DeleteBook(ctx context.Context, id uint) error {
	if err := s.store.DeleteBookAndNote(ctx, id); err != nil {
		if errors.Is(err, books.ErrNotFound) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "delete book %d", id)
	}

	s.logger.Info("Book deleted", zap.Uint("book_id", id))
	return nil
}
