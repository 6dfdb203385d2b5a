// conf/utils.go config file discovery and filesystem helpers
package conf

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gearmap/gearmap-go/internal/errors"
	"github.com/gearmap/gearmap-go/internal/logging"
)

const osWindows = "windows"

// GetDefaultConfigPaths returns the default config file locations in lookup order.
// The working directory is always first so a local config.yaml wins.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	// Fetch the user's home directory.
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}

	// Define default paths based on the operating system.
	switch runtime.GOOS {
	case osWindows:
		exePath, err := os.Executable()
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategorySystem).
				Context("operation", "get-executable-path").
				Build()
		}
		configPaths = []string{
			".",
			filepath.Dir(exePath),
			filepath.Join(homeDir, "AppData", "Roaming", "gearmap-go"),
		}
	default:
		configPaths = []string{
			".",
			filepath.Join(homeDir, ".config", "gearmap-go"),
			"/etc/gearmap-go",
		}
	}

	return configPaths, nil
}

// FindConfigFile returns the path of the first config.yaml found in the default paths.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "find-config-paths").
			Build()
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Category(errors.CategoryFileIO).
		Context("operation", "find-config-file").
		Build()
}

// GetBasePath expands environment variables in the given path and ensures the
// resulting directory exists. Relative paths stay relative to the working
// directory.
func GetBasePath(path string) string {
	expandedPath := os.ExpandEnv(path)

	// Normalize the path to handle any irregularities such as trailing slashes.
	basePath := filepath.Clean(expandedPath)

	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		if err := os.MkdirAll(basePath, 0o750); err != nil {
			fmt.Printf("failed to create directory '%s': %v\n", basePath, err)
		}
	}

	return basePath
}

// ParseLogLevel maps a config level string onto an slog level.
// Unknown values fall back to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "trace":
		return logging.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// moveFile moves a file, falling back to copy and delete across filesystems.
func moveFile(src, dst string) error {
	// Try to rename the file first (this works for moves within the same filesystem)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	// Validate paths to prevent directory traversal
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("error resolving source path: %w", err)
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("error resolving destination path: %w", err)
	}

	srcFile, err := os.Open(srcAbs) //nolint:gosec // G304: srcAbs is filepath.Abs resolved path
	if err != nil {
		return fmt.Errorf("error opening source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dstAbs) //nolint:gosec // G304: dstAbs is filepath.Abs resolved path
	if err != nil {
		return fmt.Errorf("error creating destination file: %w", err)
	}
	defer dstFile.Close()

	// Copy the contents from source to destination
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("error copying file contents: %w", err)
	}

	// Make sure the copy hit disk before removing the source
	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("error syncing destination file: %w", err)
	}

	if err := os.Remove(srcAbs); err != nil {
		return fmt.Errorf("error removing source file: %w", err)
	}

	return nil
}
