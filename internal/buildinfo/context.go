// Package buildinfo carries build-time metadata — version, build date, and
// a per-host system identifier — separately from internal/config. This data
// is fixed at link time or process start and never reloaded, so it has no
// business living next to options a host can edit and re-validate.
package buildinfo

import "os"

// UnknownValue is returned for any field that was never set.
const UnknownValue = "unknown"

// BuildInfo is the read-only view consumers (internal/metrics, a support
// bundle) depend on, rather than the concrete *Context, so tests can supply
// a fake without constructing a real one.
type BuildInfo interface {
	GetVersion() string
	GetBuildDate() string
	GetSystemID() string
}

// Context holds build-time metadata injected at process start. Version and
// BuildDate are typically set via linker flags (-ldflags "-X ...") in
// cmd/corebench's build; SystemID identifies the running host for metrics
// and diagnostics.
type Context struct {
	Version   string
	BuildDate string
	SystemID  string
}

// NewContext builds a Context from explicit values.
func NewContext(version, buildDate, systemID string) *Context {
	return &Context{Version: version, BuildDate: buildDate, SystemID: systemID}
}

// GetVersion implements BuildInfo.
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return UnknownValue
	}
	return c.Version
}

// GetBuildDate implements BuildInfo.
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return UnknownValue
	}
	return c.BuildDate
}

// GetSystemID implements BuildInfo.
func (c *Context) GetSystemID() string {
	if c == nil || c.SystemID == "" {
		return UnknownValue
	}
	return c.SystemID
}

// DetectSystemID returns the running host's hostname, or UnknownValue if it
// cannot be determined. Callers that construct a Context without an
// operator-supplied system ID (cmd/corebench at startup) use this so the
// field is still useful rather than defaulting silently to "unknown".
func DetectSystemID() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return UnknownValue
	}
	return name
}
