// Package settings holds build metadata and the per-invocation run
// configuration shared by the CLI and the terminal UI.
package settings

import "time"

// CliBinaryName is the name of the executable.
const CliBinaryName = "listdirector"

// DefaultDatabase is used when --db is not given.
const DefaultDatabase = "listdirector.db"

// VersionInformation is set at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run is the configuration of one execution.
type Run struct {
	MinLogLevel int8
	// LogFile receives logs while the interactive UI owns the terminal.
	LogFile     string
	Database    string
	NoColor     bool
	ExitOnError bool
	// WatchInterval is how often the database is polled for outside
	// changes. Zero disables watching.
	WatchInterval time.Duration
}

// NewCliParams returns the defaults for a CLI invocation.
func NewCliParams() *Run {
	return &Run{
		Database:    DefaultDatabase,
		ExitOnError: true,
	}
}
