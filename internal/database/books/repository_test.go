package books

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "books.db")

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=1&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{}, &entities.Note{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewRepository(db), db
}

func date(s string) time.Time {
	d, err := time.Parse(entities.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func createBook(t *testing.T, repo *Repository, title string, score int, read string, note string) *entities.Book {
	t.Helper()
	book := &entities.Book{
		Title:    title,
		Author:   "Author of " + title,
		ISBN:     "9780000000000",
		DateRead: date(read),
		Score:    score,
	}
	require.NoError(t, repo.CreateBookWithNote(context.Background(), book, note))
	return book
}

func titles(list []entities.Book) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.Title)
	}
	return out
}

func TestRepository_ListBooks_Orders(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	createBook(t, repo, "Middle", 3, "2023-05-01", "")
	createBook(t, repo, "Best", 5, "2021-01-15", "")
	createBook(t, repo, "Worst", 1, "2024-02-29", "")

	tests := []struct {
		name  string
		order SortOrder
		want  []string
	}{
		{"score descending", OrderScoreDesc, []string{"Best", "Middle", "Worst"}},
		{"date read descending", OrderDateReadDesc, []string{"Worst", "Middle", "Best"}},
		{"title ascending", OrderTitleAsc, []string{"Best", "Middle", "Worst"}},
		{"by id", OrderID, []string{"Middle", "Best", "Worst"}},
		{"unknown falls back to score", SortOrder("bogus"), []string{"Best", "Middle", "Worst"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := repo.ListBooks(ctx, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(list))
		})
	}
}

func TestRepository_ListBooks_TiesBrokenByID(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	createBook(t, repo, "Zeta", 4, "2022-01-01", "")
	createBook(t, repo, "Alpha", 4, "2022-01-01", "")
	createBook(t, repo, "Mu", 4, "2022-01-01", "")

	byScore, err := repo.ListBooks(ctx, OrderScoreDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta", "Alpha", "Mu"}, titles(byScore))

	byDate, err := repo.ListBooks(ctx, OrderDateReadDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta", "Alpha", "Mu"}, titles(byDate))
}

func TestRepository_CreateBookWithNote(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	t.Run("with note", func(t *testing.T) {
		book := createBook(t, repo, "Dune", 5, "2020-03-01", "line one\nline two")
		assert.NotZero(t, book.ID)

		note, err := repo.GetNoteByBookID(ctx, book.ID)
		require.NoError(t, err)
		require.NotNil(t, note)
		assert.Equal(t, "line one\nline two", note.Content)
	})

	t.Run("without note", func(t *testing.T) {
		book := createBook(t, repo, "Emma", 3, "2020-03-02", "")

		note, err := repo.GetNoteByBookID(ctx, book.ID)
		require.NoError(t, err)
		assert.Nil(t, note)
	})

	t.Run("ids increase", func(t *testing.T) {
		first := createBook(t, repo, "First", 1, "2020-01-01", "")
		second := createBook(t, repo, "Second", 1, "2020-01-01", "")
		assert.Greater(t, second.ID, first.ID)
	})
}

func TestRepository_CreateBookWithNote_RollsBackOnNoteFailure(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrator().DropTable(&entities.Note{}))

	book := &entities.Book{Title: "Orphan", DateRead: date("2021-01-01"), Score: 2}
	err := repo.CreateBookWithNote(ctx, book, "this note cannot be stored")
	require.Error(t, err)

	list, err := repo.ListBooks(ctx, OrderID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_UpdateBookAndUpsertNote(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	book := createBook(t, repo, "Draft", 2, "2019-07-07", "")

	book.Title = "Final"
	book.Author = "New Author"
	book.ISBN = "0306406152"
	book.DateRead = date("2020-08-08")
	book.Score = 4
	book.Review = "better on reread"
	require.NoError(t, repo.UpdateBookAndUpsertNote(ctx, book, "first note"))

	stored, err := repo.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", stored.Title)
	assert.Equal(t, "New Author", stored.Author)
	assert.Equal(t, "0306406152", stored.ISBN)
	assert.Equal(t, "2020-08-08", stored.FormattedDateRead())
	assert.Equal(t, 4, stored.Score)
	assert.Equal(t, "better on reread", stored.Review)

	count, err := repo.CountNotes(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "insert path creates exactly one note")

	require.NoError(t, repo.UpdateBookAndUpsertNote(ctx, book, "second note"))

	count, err = repo.CountNotes(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "update path keeps exactly one note")

	note, err := repo.GetNoteByBookID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "second note", note.Content)
}

func TestRepository_UpdateBookAndUpsertNote_ClearsReview(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Reviewed", DateRead: date("2020-01-01"), Score: 3, Review: "long review"}
	require.NoError(t, repo.CreateBookWithNote(ctx, book, ""))

	book.Review = ""
	require.NoError(t, repo.UpdateBookAndUpsertNote(ctx, book, ""))

	stored, err := repo.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Review)
}

func TestRepository_UpdateBookAndUpsertNote_Concurrent(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	book := createBook(t, repo, "Contested", 3, "2022-02-02", "")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := *book
			assert.NoError(t, repo.UpdateBookAndUpsertNote(ctx, &b, "writer"))
		}()
	}
	wg.Wait()

	count, err := repo.CountNotes(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_UpdateBookAndUpsertNote_NotFound(t *testing.T) {
	repo, _ := setupTestDB(t)

	err := repo.UpdateBookAndUpsertNote(context.Background(), &entities.Book{ID: 404, Title: "Ghost"}, "note")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := repo.CountNotes(context.Background(), 404)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepository_DeleteBookAndNote(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	book := createBook(t, repo, "Gone", 2, "2018-01-01", "some note")

	require.NoError(t, repo.DeleteBookAndNote(ctx, book.ID))

	_, err := repo.GetBookByID(ctx, book.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := repo.CountNotes(ctx, book.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	t.Run("missing book", func(t *testing.T) {
		err := repo.DeleteBookAndNote(ctx, book.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRepository_BookWithNoteCannotBeDeletedDirectly(t *testing.T) {
	repo, db := setupTestDB(t)

	book := createBook(t, repo, "Guarded", 2, "2018-01-01", "note")

	err := db.Delete(&entities.Book{}, book.ID).Error
	assert.Error(t, err, "foreign key keeps the note from being orphaned")
}

func TestRepository_GetBookByID_NotFound(t *testing.T) {
	repo, _ := setupTestDB(t)

	_, err := repo.GetBookByID(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}
