package datastore

import (
	"path/filepath"

	"github.com/mkoivun/antdb-go/internal/conf"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the SQLite database connection
func (store *SQLiteStore) Open() error {
	dir, fileName := filepath.Split(store.Settings.Output.SQLite.Path)
	basePath := conf.GetBasePath(dir)
	absoluteFilePath := filepath.Join(basePath, fileName)

	db, err := gorm.Open(sqlite.Open(absoluteFilePath), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		return dbError(err, "open", "critical", "db_type", "SQLite", "path", absoluteFilePath)
	}

	// The sqlite driver does not enforce foreign keys unless asked, and the
	// RESTRICT on species deletion depends on it.
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return dbError(err, "enable_foreign_keys", "critical")
	}

	store.DB = db
	return performAutoMigration(db, store.Settings.Debug, "SQLite", absoluteFilePath)
}

// Close is a no-op for SQLite, the file handle is managed by the driver
func (store *SQLiteStore) Close() error {
	return nil
}
