package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Score bounds accepted from the admin form.
const (
	MinScore = 1
	MaxScore = 10
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidID    = errors.New("invalid book id")
)

// ValidationError names the form field that failed. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// BookInput is a submitted book form, as raw strings.
type BookInput struct {
	Title    string
	Author   string
	ISBN     string
	DateRead string // YYYY-MM-DD
	Score    string
	Review   string
	Note     string
}

// toBook validates the input and converts it to a Book. The note is returned
// separately since it lives in its own table.
func (in BookInput) toBook() (*entities.Book, string, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, "", &ValidationError{Field: "title", Reason: "required"}
	}

	dateRead, err := time.Parse(entities.DateLayout, strings.TrimSpace(in.DateRead))
	if err != nil {
		return nil, "", &ValidationError{Field: "date read", Reason: "expected YYYY-MM-DD"}
	}

	score, err := strconv.Atoi(strings.TrimSpace(in.Score))
	if err != nil {
		return nil, "", &ValidationError{Field: "score", Reason: "not a number"}
	}
	if score < MinScore || score > MaxScore {
		return nil, "", &ValidationError{Field: "score", Reason: fmt.Sprintf("must be between %d and %d", MinScore, MaxScore)}
	}

	book := &entities.Book{
		Title:    title,
		Author:   strings.TrimSpace(in.Author),
		ISBN:     strings.TrimSpace(in.ISBN),
		DateRead: dateRead,
		Score:    score,
		Review:   in.Review,
	}
	return book, in.Note, nil
}

// ParseID parses a book id from a path segment. Anything other than a
// positive decimal integer is ErrInvalidID.
func ParseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}
	return uint(id), nil
}
