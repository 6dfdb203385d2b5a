// mysql.go MySQL-backed icon configuration store.
package iconstore

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/errors"
)

// MySQLStore implements Interface for MySQL.
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

func validateMySQLConfig(settings *conf.Settings) error {
	mysqlSettings := settings.Output.MySQL
	if mysqlSettings.Host == "" || mysqlSettings.Database == "" {
		return errors.Newf("MySQL host and database must be configured").
			Component("iconstore").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_mysql_config").
			Build()
	}
	return nil
}

// Open opens the MySQL database, migrates the schema and seeds the built-in
// defaults for subjects without a record.
func (store *MySQLStore) Open() error {
	if err := validateMySQLConfig(store.Settings); err != nil {
		return err
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		store.Settings.Output.MySQL.Username, store.Settings.Output.MySQL.Password,
		store.Settings.Output.MySQL.Host, store.Settings.Output.MySQL.Port,
		store.Settings.Output.MySQL.Database)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: createGormLogger()})
	if err != nil {
		// The DSN carries credentials and is never logged or attached to
		// errors, host and database are enough to locate the problem.
		return errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "open_mysql").
			Context("host", store.Settings.Output.MySQL.Host).
			Context("database", store.Settings.Output.MySQL.Database).
			Build()
	}

	store.DB = db
	if err := performAutoMigration(db, store.Settings.Debug, "MySQL", store.Settings.Output.MySQL.Database); err != nil {
		return err
	}
	return store.seedDefaults()
}
