package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// connParams enables foreign keys (note.book_id -> book.id) and lets
// concurrent writers wait on each other instead of failing with SQLITE_BUSY.
const connParams = "?_foreign_keys=1&_busy_timeout=5000&_journal_mode=WAL"

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string, log *zap.Logger) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath+connParams), &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Book{},
		&entities.Note{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("Database initialized", zap.String("path", dbPath))

	return &Database{DB: db}, nil
}

// SQLDB returns the pooled connection underneath GORM, shared with the session store.
func (d *Database) SQLDB() (*sql.DB, error) {
	return d.DB.DB()
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
