// sqlite.go SQLite-backed icon configuration store.
package iconstore

import (
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/errors"
)

// SQLiteStore implements Interface for SQLite, the default backend.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return errors.Newf("SQLite database path is empty").
			Component("iconstore").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_sqlite_config").
			Build()
	}
	return nil
}

// Open opens the SQLite database, migrates the schema and seeds the built-in
// defaults for subjects without a record.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	dir, fileName := filepath.Split(store.Settings.Output.SQLite.Path)
	basePath := conf.GetBasePath(dir)
	dbPath := filepath.Join(basePath, fileName)

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		return errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_sqlite").
			Context("db_path", dbPath).
			Build()
	}

	store.DB = db
	if err := performAutoMigration(db, store.Settings.Debug, "SQLite", dbPath); err != nil {
		return err
	}
	return store.seedDefaults()
}
