package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func restore(t *testing.T) {
	t.Helper()
	v, c, d := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = v, c, d })
}

func TestInfo(t *testing.T) {
	restore(t)
	Version, Commit, Date = "1.2.3", "abc1234", "2026-01-02"

	got := Info()
	if !strings.HasPrefix(got, "relay 1.2.3 (commit: abc1234, built: 2026-01-02) go") {
		t.Errorf("Info() = %q", got)
	}
	if Short() != "1.2.3" {
		t.Errorf("Short() = %q, want 1.2.3", Short())
	}
}

func TestFromBuildInfo(t *testing.T) {
	restore(t)
	Version, Commit, Date = "dev", "none", "unknown"

	fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-03-04T05:06:07Z"},
		},
	}, true)

	if Version != "v0.4.0" {
		t.Errorf("Version = %q, want v0.4.0", Version)
	}
	if Commit != "0123456" {
		t.Errorf("Commit = %q, want 0123456", Commit)
	}
	if Date != "2026-03-04T05:06:07Z" {
		t.Errorf("Date = %q", Date)
	}
}

func TestFromBuildInfo_KeepsLdflags(t *testing.T) {
	restore(t)
	Version = "1.0.0"

	fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "v9.9.9"}}, true)
	if Version != "1.0.0" {
		t.Errorf("Version = %q, ldflags value should win", Version)
	}

	Version = "dev"
	fromBuildInfo(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true)
	if Version != "dev" {
		t.Errorf("Version = %q, want dev", Version)
	}
	fromBuildInfo(nil, false)
}
