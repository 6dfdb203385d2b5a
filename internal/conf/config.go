// config.go: settings struct for the gearmap service and functions to load and save it.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gearmap/gearmap-go/internal/errors"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled bool   // true to enable this log
	Path    string // path to the log file
	Level   string // minimum level: trace, debug, info, warn, error
}

// WebServerSettings contains settings for the HTTP service.
type WebServerSettings struct {
	Debug         bool      // true to enable debug mode
	Enabled       bool      // true to enable web server
	Port          string    // port for web server
	MaxUploadSize int64     // request body limit for PDF uploads, bytes
	UploadRate    int       // accepted uploads per second per client
	FileTTL       int       // minutes converted files stay downloadable
	Log           LogConfig // logging configuration for the API request log
}

// ConversionSettings contains settings for the annotation conversion engine.
type ConversionSettings struct {
	Debug            bool   // true to enable debug mode
	DefaultDirection string // mapping direction used when a request omits one
	MaxPages         int    // refuse documents with more pages than this
	LabelSource      string // where icon labels come from: "contents"
}

// IconSettings contains settings for icon rendering.
type IconSettings struct {
	ImageDir   string  // directory holding embeddable gear images (PNG)
	RenderSize float64 // icon design-space edge length in points
}

// SQLiteSettings contains settings for the SQLite icon config store.
type SQLiteSettings struct {
	Enabled bool   // true to enable sqlite store
	Path    string // path to sqlite database
}

// MySQLSettings contains settings for the MySQL icon config store.
type MySQLSettings struct {
	Enabled  bool   // true to enable mysql store
	Username string // username for mysql database
	Password string // password for mysql database
	Database string // database name for mysql database
	Host     string // host for mysql database
	Port     string // port for mysql database
}

// TelemetrySettings contains settings for optional error reporting.
type TelemetrySettings struct {
	Enabled bool   // true to enable Sentry error reporting, opt-in
	DSN     string // Sentry DSN, empty disables reporting
}

// RealtimeSettings groups settings that only apply to the running service.
type RealtimeSettings struct {
	Telemetry TelemetrySettings // error reporting settings
}

// Settings contains all configuration options for the gearmap service.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"` // Version from build
	BuildDate string `yaml:"-"` // Build date from build

	Main struct {
		Name      string    // name of this gearmap node, used to identify log sources
		TimeAs24h bool      // true 24-hour time format, false 12-hour time format
		Log       LogConfig // main logging configuration
	}

	WebServer  WebServerSettings  // HTTP service settings
	Conversion ConversionSettings // conversion engine settings
	Icons      IconSettings       // icon renderer settings
	Realtime   RealtimeSettings   // running-service settings

	Output struct {
		SQLite SQLiteSettings // icon store SQLite backend
		MySQL  MySQLSettings  // icon store MySQL backend
	}
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	// Initialize viper and read config
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Unmarshal the config into settings
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Validate settings
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Get OS specific config paths
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	// Assign config paths to Viper
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	// Read configuration file
	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	// Create directories for config file
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	// Write default config file
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveSettings saves the current settings to the configuration file.
// It uses SaveYAMLConfig to handle the atomic write process.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	// Work on a copy so the live instance is untouched during marshal
	settingsCopy := *settingsInstance

	// Find the path of the current config file
	configPath, err := FindConfigFile()
	if err != nil {
		return fmt.Errorf("error finding config file: %w", err)
	}

	// Save the settings to the config file
	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	log.Printf("Settings saved successfully to %s", configPath)
	return nil
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	// Marshal the settings struct to YAML
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write the YAML data to a temporary file
	// This is done to ensure atomic write operation
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	// Ensure the temporary file is removed in case of any failure
	defer os.Remove(tempFileName)

	// Write the YAML data to the temporary file
	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	// Close the temporary file after writing
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	// Try to rename the temporary file to replace the original config file
	// This is typically an atomic operation on most filesystems
	if err := os.Rename(tempFileName, configPath); err != nil {
		// If rename fails (e.g., cross-device link), fall back to copy & delete
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}
