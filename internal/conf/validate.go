// conf/validate.go

package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	// Validate WebServer settings
	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Conversion settings
	if err := validateConversionSettings(&settings.Conversion); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Icon settings
	if err := validateIconSettings(&settings.Icons); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Output settings
	if err := validateOutputSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate log levels
	for _, lc := range []*LogConfig{&settings.Main.Log, &settings.WebServer.Log} {
		if err := validateLogConfig(lc); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	// If there are any errors, return the ValidationError
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateWebServerSettings validates the WebServer-specific settings
func validateWebServerSettings(settings *WebServerSettings) error {
	var errs []string

	if settings.Enabled {
		// Check if port is provided when enabled
		if settings.Port == "" {
			errs = append(errs, "WebServer port is required when enabled")
		} else if port, err := strconv.Atoi(settings.Port); err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("WebServer port must be a number between 1 and 65535, got %q", settings.Port))
		}
	}

	if settings.MaxUploadSize < 1024 {
		errs = append(errs, "WebServer maxuploadsize must be at least 1024 bytes")
	}

	if settings.UploadRate < 1 {
		errs = append(errs, "WebServer uploadrate must be at least 1")
	}

	if settings.FileTTL < 1 {
		errs = append(errs, "WebServer filettl must be at least 1 minute")
	}

	if len(errs) > 0 {
		return fmt.Errorf("WebServer settings errors: %v", errs)
	}
	return nil
}

// validateConversionSettings validates the conversion engine settings
func validateConversionSettings(settings *ConversionSettings) error {
	var errs []string

	if strings.TrimSpace(settings.DefaultDirection) == "" {
		errs = append(errs, "Conversion defaultdirection must not be empty")
	}

	if settings.MaxPages < 1 || settings.MaxPages > 10000 {
		errs = append(errs, "Conversion maxpages must be between 1 and 10000")
	}

	if settings.LabelSource != "contents" {
		errs = append(errs, fmt.Sprintf("Conversion labelsource %q is not supported, only \"contents\"", settings.LabelSource))
	}

	if len(errs) > 0 {
		return fmt.Errorf("Conversion settings errors: %v", errs)
	}
	return nil
}

// validateIconSettings validates the icon renderer settings
func validateIconSettings(settings *IconSettings) error {
	var errs []string

	if settings.ImageDir == "" {
		errs = append(errs, "Icons imagedir must not be empty")
	}

	// Icons smaller than 16 points are unreadable, larger than 1000 waste space
	if settings.RenderSize < 16 || settings.RenderSize > 1000 {
		errs = append(errs, "Icons rendersize must be between 16 and 1000 points")
	}

	if len(errs) > 0 {
		return fmt.Errorf("Icons settings errors: %v", errs)
	}
	return nil
}

// validateOutputSettings validates the icon store backend selection
func validateOutputSettings(settings *Settings) error {
	var errs []string

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		errs = append(errs, "at least one of output.sqlite or output.mysql must be enabled")
	}

	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		errs = append(errs, "output.sqlite.path must not be empty when sqlite is enabled")
	}

	if settings.Output.MySQL.Enabled {
		my := &settings.Output.MySQL
		if my.Username == "" || my.Database == "" || my.Host == "" || my.Port == "" {
			errs = append(errs, "output.mysql requires username, database, host and port when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("Output settings errors: %v", errs)
	}
	return nil
}

// validateLogConfig checks that a log level is one slog understands
func validateLogConfig(lc *LogConfig) error {
	if !lc.Enabled {
		return nil
	}
	switch strings.ToLower(lc.Level) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log level %q is not valid, use trace, debug, info, warn or error", lc.Level)
	}
}
