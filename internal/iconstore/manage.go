// manage.go database migration, seeding and GORM logging plumbing.
package iconstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/logging"
)

// DefaultSlowQueryThreshold is the duration after which queries are logged
// as slow. Store queries touch a handful of rows, anything above this points
// at a locked file or an overloaded server.
const DefaultSlowQueryThreshold = 1 * time.Second

// gormLogAdapter adapts a slog.Logger to GORM's logger interface. SQL is
// logged at trace level so it only shows up when the level is lowered for
// debugging, slow queries and query errors are warnings.
type gormLogAdapter struct {
	log           *slog.Logger
	slowThreshold time.Duration
}

// createGormLogger builds the GORM logger used by every backend.
func createGormLogger() gormlogger.Interface {
	log := logging.ForService("iconstore")
	if log == nil {
		log = slog.Default()
	}
	return &gormLogAdapter{log: log, slowThreshold: DefaultSlowQueryThreshold}
}

// LogMode returns the adapter itself, the level is controlled by the
// service's logging configuration, not by GORM.
func (a *gormLogAdapter) LogMode(_ gormlogger.LogLevel) gormlogger.Interface {
	return a
}

// Info logs GORM informational messages at debug level, they are verbose.
func (a *gormLogAdapter) Info(_ context.Context, msg string, data ...any) {
	a.log.Debug(fmt.Sprintf(msg, data...))
}

func (a *gormLogAdapter) Warn(_ context.Context, msg string, data ...any) {
	a.log.Warn(fmt.Sprintf(msg, data...))
}

func (a *gormLogAdapter) Error(_ context.Context, msg string, data ...any) {
	a.log.Error(fmt.Sprintf(msg, data...))
}

// Trace logs SQL queries and their execution details.
func (a *gormLogAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		a.log.Warn("query error",
			"sql", sql,
			"rows_affected", rows,
			"duration_ms", elapsed.Milliseconds(),
			"error", err)

	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		a.log.Warn("slow query",
			"sql", sql,
			"rows_affected", rows,
			"duration_ms", elapsed.Milliseconds(),
			"threshold", a.slowThreshold.String())

	default:
		a.log.Log(ctx, logging.LevelTrace, "sql query",
			"sql", sql,
			"rows_affected", rows,
			"duration_ms", elapsed.Milliseconds())
	}
}

// performAutoMigration creates or upgrades the icon configuration table.
// connectionInfo must already be safe to log, callers pass a path or a
// database name, never a DSN with credentials.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&IconConfig{}); err != nil {
		return errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migration").
			Context("db_type", dbType).
			Build()
	}

	if debug {
		log := logging.ForService("iconstore")
		if log == nil {
			log = slog.Default()
		}
		log.Debug("icon configuration table migrated",
			"db_type", dbType,
			"connection_info", connectionInfo)
	}
	return nil
}

// seedDefaults inserts the built-in configurations for subjects that have no
// record yet. Existing rows are left alone so user overrides survive
// restarts.
func (ds *DataStore) seedDefaults() error {
	defaults, err := loadDefaultConfigs()
	if err != nil {
		return err
	}

	seeded := 0
	for i := range defaults {
		cfg := defaults[i]

		var count int64
		if err := ds.DB.Model(&IconConfig{}).Where("subject = ?", cfg.Subject).Count(&count).Error; err != nil {
			return errors.New(err).
				Component("iconstore").
				Category(errors.CategoryDatabase).
				Context("operation", "seed_defaults").
				Context("subject", cfg.Subject).
				Build()
		}
		if count > 0 {
			continue
		}

		cfg.Source = SourceDefault
		if err := ds.DB.Create(&cfg).Error; err != nil {
			return errors.New(err).
				Component("iconstore").
				Category(errors.CategoryDatabase).
				Context("operation", "seed_defaults").
				Context("subject", cfg.Subject).
				Build()
		}
		seeded++
	}

	if seeded > 0 {
		ds.logger().Info("seeded built-in icon configurations", "count", seeded)
	}
	return nil
}
