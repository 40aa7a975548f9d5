package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func observedDatabase(t *testing.T, level zapcore.Level) (*Database, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(level)

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"), zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, logs
}

func TestGormLogger_MissingRowIsNotAnError(t *testing.T) {
	db, logs := observedDatabase(t, zapcore.InfoLevel)

	var book entities.Book
	err := db.DB.First(&book, 42).Error
	require.Error(t, err)

	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Zero(t, logs.FilterMessage("Query failed").Len())
}

func TestGormLogger_FailedQueryGoesToZap(t *testing.T) {
	db, logs := observedDatabase(t, zapcore.InfoLevel)

	err := db.DB.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)

	failures := logs.FilterMessage("Query failed").All()
	require.Len(t, failures, 1)
	entry := failures[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "gorm", entry.LoggerName)
	assert.Equal(t, "SELECT * FROM no_such_table", entry.ContextMap()["sql"])
	assert.Contains(t, entry.ContextMap()["error"], "no_such_table")
}

func TestGormLogger_SilentMode(t *testing.T) {
	db, logs := observedDatabase(t, zapcore.DebugLevel)

	quiet := db.DB.Session(&gorm.Session{Logger: db.DB.Logger.LogMode(logger.Silent)})
	require.Error(t, quiet.Exec("SELECT * FROM no_such_table").Error)

	assert.Zero(t, logs.FilterMessage("Query failed").Len())
}

func TestGormLogger_DebugTracesQueries(t *testing.T) {
	db, logs := observedDatabase(t, zapcore.DebugLevel)

	var count int64
	require.NoError(t, db.DB.Model(&entities.Book{}).Count(&count).Error)

	assert.NotZero(t, logs.FilterMessage("Query").FilterLevelExact(zapcore.DebugLevel).Len())
}
