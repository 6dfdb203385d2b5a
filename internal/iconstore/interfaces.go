// interfaces.go defines the store contract and the shared gorm implementation.
package iconstore

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/gearmap/gearmap-go/internal/conf"
	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/logging"
)

// Interface abstracts the underlying database implementation and defines the
// operations the rest of the service performs on icon configurations.
type Interface interface {
	Open() error
	Close() error
	Get(subject string) (IconConfig, error)
	List() ([]IconConfig, error)
	ListByCategory(category string) ([]IconConfig, error)
	Create(subject, category, cloneFrom string) (IconConfig, error)
	Update(subject string, patch FieldPatch) (IconConfig, error)
	Delete(subject string) error
	ApplyToAll(req ApplyToAllRequest) (int, error)
	Categories() ([]CategoryInfo, error)
	Snapshot(subject string) (IconConfig, func(), error)
}

// CategoryInfo summarizes one category for the listing endpoint.
type CategoryInfo struct {
	Name            string   `json:"name"`
	ConfigCount     int      `json:"config_count"`
	DefaultSubjects []string `json:"default_subjects"`
}

// DataStore implements Interface using a GORM database. Writes to one
// subject are serialized through a keyed mutex so concurrent updates and
// batch propagation cannot interleave within a record. Readers go straight
// to the database.
type DataStore struct {
	DB *gorm.DB // GORM database instance

	mu    sync.Mutex             // guards locks and pins
	locks map[string]*sync.Mutex // per-subject write locks
	pins  map[string]int         // outstanding render snapshots per subject
}

// New creates a store instance based on the configured backend.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		// Neither backend is enabled, settings validation should have
		// caught this before the store is constructed.
		return nil
	}
}

// logger returns the structured logger for store operations.
func (ds *DataStore) logger() *slog.Logger {
	if l := logging.ForService("iconstore"); l != nil {
		return l
	}
	return slog.Default()
}

// subjectLock returns the write lock for one subject, creating it on first
// use. Lock instances are never removed, the subject universe is small.
func (ds *DataStore) subjectLock(subject string) *sync.Mutex {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.locks == nil {
		ds.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := ds.locks[subject]
	if !ok {
		lock = &sync.Mutex{}
		ds.locks[subject] = lock
	}
	return lock
}

// pin marks subject as the render target of an in-flight conversion and
// returns a release func. Release is idempotent.
func (ds *DataStore) pin(subject string) func() {
	ds.mu.Lock()
	if ds.pins == nil {
		ds.pins = make(map[string]int)
	}
	ds.pins[subject]++
	ds.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ds.mu.Lock()
			defer ds.mu.Unlock()
			if ds.pins[subject] <= 1 {
				delete(ds.pins, subject)
			} else {
				ds.pins[subject]--
			}
		})
	}
}

// pinned reports whether subject has outstanding render snapshots.
func (ds *DataStore) pinned(subject string) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.pins[subject] > 0
}

// Get retrieves the configuration for one subject.
func (ds *DataStore) Get(subject string) (IconConfig, error) {
	var cfg IconConfig
	if err := ds.DB.Where("subject = ?", subject).First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return IconConfig{}, errors.NotFoundError("icon configuration", subject)
		}
		return IconConfig{}, errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_icon_config").
			Context("subject", subject).
			Build()
	}
	return cfg, nil
}

// List returns every stored configuration in subject order.
func (ds *DataStore) List() ([]IconConfig, error) {
	var configs []IconConfig
	if err := ds.DB.Order("subject").Find(&configs).Error; err != nil {
		return nil, errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "list_icon_configs").
			Build()
	}
	return configs, nil
}

// ListByCategory returns the configurations of one category in subject order.
func (ds *DataStore) ListByCategory(category string) ([]IconConfig, error) {
	var configs []IconConfig
	if err := ds.DB.Where("category = ?", category).Order("subject").Find(&configs).Error; err != nil {
		return nil, errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "list_icon_configs_by_category").
			Context("category", category).
			Build()
	}
	return configs, nil
}

// Categories aggregates the stored configurations by category. Subjects
// inside each entry keep the store's subject ordering.
func (ds *DataStore) Categories() ([]CategoryInfo, error) {
	configs, err := ds.List()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*CategoryInfo)
	for i := range configs {
		cfg := &configs[i]
		info, ok := byName[cfg.Category]
		if !ok {
			info = &CategoryInfo{Name: cfg.Category}
			byName[cfg.Category] = info
		}
		info.ConfigCount++
		if cfg.Source == SourceDefault {
			info.DefaultSubjects = append(info.DefaultSubjects, cfg.Subject)
		}
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]CategoryInfo, 0, len(names))
	for _, name := range names {
		result = append(result, *byName[name])
	}
	return result, nil
}

// Create inserts a new configuration. With cloneFrom set, every field except
// subject and category is copied from the named source record. Without it the
// record starts from the neutral baseline. New records are always custom.
func (ds *DataStore) Create(subject, category, cloneFrom string) (IconConfig, error) {
	if subject == "" {
		return IconConfig{}, errors.ValidationError("subject must not be empty")
	}

	lock := ds.subjectLock(subject)
	lock.Lock()
	defer lock.Unlock()

	if _, err := ds.Get(subject); err == nil {
		return IconConfig{}, errors.Newf("icon configuration %q already exists", subject).
			Component("iconstore").
			Category(errors.CategoryConflict).
			Context("operation", "create_icon_config").
			Context("subject", subject).
			Build()
	} else if !errors.IsNotFound(err) {
		return IconConfig{}, err
	}

	var cfg IconConfig
	if cloneFrom != "" {
		source, err := ds.Get(cloneFrom)
		if err != nil {
			return IconConfig{}, err
		}
		cfg = source
		cfg.Subject = subject
		cfg.Category = category
		cfg.CreatedAt = time.Time{}
		cfg.UpdatedAt = time.Time{}
	} else {
		cfg = NewConfig(subject, category)
	}
	cfg.Source = SourceCustom

	if err := cfg.Validate(); err != nil {
		return IconConfig{}, err
	}

	if err := ds.DB.Create(&cfg).Error; err != nil {
		return IconConfig{}, errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "create_icon_config").
			Context("subject", subject).
			Build()
	}

	ds.logger().Info("icon configuration created",
		"subject", subject,
		"category", category,
		"clone_from", cloneFrom)
	return cfg, nil
}

// Update merges the patch into the stored record, re-validates it and writes
// the result. Editing a built-in default turns it into an override.
func (ds *DataStore) Update(subject string, patch FieldPatch) (IconConfig, error) {
	lock := ds.subjectLock(subject)
	lock.Lock()
	defer lock.Unlock()

	cfg, err := ds.Get(subject)
	if err != nil {
		return IconConfig{}, err
	}
	if patch.empty() {
		return cfg, nil
	}

	patch.apply(&cfg)
	if cfg.Source == SourceDefault {
		cfg.Source = SourceOverride
	}

	if err := cfg.Validate(); err != nil {
		// The bad value came from the caller, not from the store.
		return IconConfig{}, errors.New(err).
			Component("iconstore").
			Category(errors.CategoryValidation).
			Context("operation", "update_icon_config").
			Context("subject", subject).
			Build()
	}

	if err := ds.DB.Save(&cfg).Error; err != nil {
		return IconConfig{}, errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "update_icon_config").
			Context("subject", subject).
			Build()
	}
	return cfg, nil
}

// Delete removes one configuration. Subjects pinned by an in-flight
// conversion are refused, the conversion's snapshot stays untouched either
// way, this only keeps the store consistent for the next lookup.
func (ds *DataStore) Delete(subject string) error {
	lock := ds.subjectLock(subject)
	lock.Lock()
	defer lock.Unlock()

	if ds.pinned(subject) {
		return errors.Newf("icon configuration %q is in use by an active conversion", subject).
			Component("iconstore").
			Category(errors.CategoryConflict).
			Context("operation", "delete_icon_config").
			Context("subject", subject).
			Build()
	}

	if _, err := ds.Get(subject); err != nil {
		return err
	}

	if err := ds.DB.Where("subject = ?", subject).Delete(&IconConfig{}).Error; err != nil {
		return errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "delete_icon_config").
			Context("subject", subject).
			Build()
	}

	ds.logger().Info("icon configuration deleted", "subject", subject)
	return nil
}

// Snapshot returns a value copy of one configuration and pins the subject
// until the release func runs. The copy itself is never invalidated by later
// writes or deletes.
func (ds *DataStore) Snapshot(subject string) (IconConfig, func(), error) {
	cfg, err := ds.Get(subject)
	if err != nil {
		return IconConfig{}, nil, err
	}
	release := ds.pin(subject)
	return cfg, release, nil
}

// Close closes the underlying database connection.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "close").
			Build()
	}

	sqlDB, err := ds.DB.DB()
	if err != nil {
		return errors.New(err).
			Component("iconstore").
			Category(errors.CategoryDatabase).
			Context("operation", "close").
			Build()
	}
	return sqlDB.Close()
}
