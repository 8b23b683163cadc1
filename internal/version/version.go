// Package version reports the relay build.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set via ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func init() {
	fromBuildInfo(debug.ReadBuildInfo())
}

// fromBuildInfo fills unset variables from module build info, which is
// present when installed with go install.
func fromBuildInfo(info *debug.BuildInfo, ok bool) {
	if !ok || Version != "dev" {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
			if len(Commit) > 7 {
				Commit = Commit[:7]
			}
		case "vcs.time":
			Date = setting.Value
		}
	}
}

// Info returns formatted version information
func Info() string {
	return fmt.Sprintf("relay %s (commit: %s, built: %s) %s",
		Version, Commit, Date, runtime.Version())
}

// Short returns just the version string
func Short() string {
	return Version
}
