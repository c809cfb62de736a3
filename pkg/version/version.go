// Package version reports the build version of the pick binary.
package version

import (
	"runtime/debug"
)

// Version is set via ldflags on release builds. Development builds fall back
// to the VCS revision embedded by the Go toolchain.
var Version string

// GetVersion returns the release version, or the VCS revision for builds
// without one.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return revision()
}

func revision() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	rev := "unknown"
	modified := false

	for _, v := range buildInfo.Settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
			if len(rev) > 7 {
				rev = rev[:7]
			}

		case "vcs.modified":
			modified = v.Value == "true"
		}
	}

	if modified {
		rev += "-dirty"
	}

	return rev
}
