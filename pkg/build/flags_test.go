// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"runtime/debug"
	"strings"
	"testing"
)

var (
	origName    string
	origTime    string
	origCommit  string
	origVersion string
	origFlags   ldFlags
)

func TestMain(m *testing.M) {
	origName = buildName
	origTime = buildTime
	origCommit = buildCommit
	origVersion = buildVersion
	origFlags = *buildFlags

	exitCode := m.Run()

	buildName = origName
	buildTime = origTime
	buildCommit = origCommit
	buildVersion = origVersion
	*buildFlags = origFlags

	os.Exit(exitCode)
}

func reset(t *testing.T) {
	t.Helper()
	buildName, buildTime, buildCommit, buildVersion = "", "", "", ""
	*buildFlags = origFlags
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })
}

func TestInitializePartialFlags(t *testing.T) {
	tests := []struct {
		name       string
		flags      [4]string
		wantErrMsg string
	}{
		{"Missing BuildName", [4]string{"", "2026-10-19", "abcdef1", "v0.3.0"}, "BuildName is required"},
		{"Missing BuildTime", [4]string{"micpipe", "", "abcdef1", "v0.3.0"}, "BuildTime is required"},
		{"Missing BuildCommit", [4]string{"micpipe", "2026-10-19", "", "v0.3.0"}, "BuildCommit is required"},
		{"Missing BuildVersion", [4]string{"micpipe", "2026-10-19", "abcdef1", ""}, "BuildVersion is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reset(t)
			buildName, buildTime, buildCommit, buildVersion = tt.flags[0], tt.flags[1], tt.flags[2], tt.flags[3]

			err := Initialize()
			if err == nil || err.Error() != tt.wantErrMsg {
				t.Errorf("Initialize() error = %v, want %q", err, tt.wantErrMsg)
			}
		})
	}
}

func TestInitializeAllFlags(t *testing.T) {
	reset(t)
	buildName, buildTime, buildCommit, buildVersion = "micpipe", "2026-10-19", "abcdef1", "v0.3.0"

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() unexpected error: %v", err)
	}

	f := GetBuildFlags()
	if f.Name != "micpipe" || f.Time != "2026-10-19" || f.Commit != "abcdef1" || f.Version != "v0.3.0" {
		t.Errorf("GetBuildFlags() = %+v", *f)
	}
	if !strings.Contains(f.String(), "v0.3.0") {
		t.Errorf("String() = %q, want version", f.String())
	}
}

func TestInitializeFromBuildInfo(t *testing.T) {
	reset(t)
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v1.2.3"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "deadbeef"},
				{Key: "vcs.time", Value: "2026-01-01T00:00:00Z"},
			},
		}, true
	}

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() unexpected error: %v", err)
	}

	f := GetBuildFlags()
	if f.Name != defaultName {
		t.Errorf("Name = %q, want %q", f.Name, defaultName)
	}
	if f.Version != "v1.2.3" || f.Commit != "deadbeef" || f.Time != "2026-01-01T00:00:00Z" {
		t.Errorf("GetBuildFlags() = %+v", *f)
	}
}

func TestInitializeWithoutBuildInfo(t *testing.T) {
	reset(t)
	readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() unexpected error: %v", err)
	}
	if GetBuildFlags().Version != "unknown" {
		t.Errorf("Version = %q, want unknown", GetBuildFlags().Version)
	}
}
