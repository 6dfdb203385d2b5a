// Package buildinfo contains build-time metadata separate from user configuration
package buildinfo

// BuildInfo provides an interface for accessing build-time metadata.
// This interface makes testing easier and allows for different implementations.
type BuildInfo interface {
	// GetVersion returns the build version string
	GetVersion() string
	// GetBuildDate returns the build date string
	GetBuildDate() string
	// GetSystemID returns the unique system identifier
	GetSystemID() string
}

// Context contains build-time metadata that is not user-configurable.
// This data is injected at application startup and should not be part
// of the configuration system.
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string

	// SystemID is a unique system identifier for telemetry
	SystemID string
}

// NewContext creates a build context from linker-injected values.
func NewContext(version, buildDate, systemID string) *Context {
	return &Context{
		Version:   version,
		BuildDate: buildDate,
		SystemID:  systemID,
	}
}

// GetVersion implements BuildInfo.GetVersion
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return "unknown"
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.GetBuildDate
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return "unknown"
	}
	return c.BuildDate
}

// GetSystemID implements BuildInfo.GetSystemID
func (c *Context) GetSystemID() string {
	if c == nil || c.SystemID == "" {
		return "unknown"
	}
	return c.SystemID
}
