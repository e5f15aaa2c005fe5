// Package version reports version information and build metadata for the
// terrafs binary. Release builds inject the values via -ldflags; go-install
// and development builds fall back to module build info.
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	// These are set by build flags or default to development values.
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// GetVersion returns the version string, preferring the compile-time
// version when one was injected.
func GetVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
	}

	return "development"
}

// GetFullVersion returns the version together with commit and build date.
func GetFullVersion() string {
	return fmt.Sprintf("%s (commit %s, built %s)", GetVersion(), Commit, Date)
}
