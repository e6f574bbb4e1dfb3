// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build of the pim binary.
//
// Release builds inject values with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/pim/lib/version.Version=1.2.0 -X github.com/bureau-foundation/pim/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Builds without them fall back to the VCS stamp the Go toolchain
// records in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty is "true" when the tree had uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version, set for releases.
	Version = "0.1.0-dev"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// stamp returns the commit, dirty flag, and time, preferring injected
// values and falling back to the toolchain's VCS settings.
func stamp() (commit string, dirty bool, built string) {
	commit, dirty, built = GitCommit, GitDirty == "true", BuildTime
	if commit != "unknown" {
		return commit, dirty, built
	}
	info, ok := readBuildInfo()
	if !ok {
		return commit, dirty, built
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		case "vcs.time":
			if built == "unknown" {
				built = setting.Value
			}
		}
	}
	return commit, dirty, built
}

// Info returns a one-line version string.
func Info() string {
	commit, dirty, built := stamp()
	suffix := ""
	if dirty {
		suffix = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, commit, suffix, built)
}

// Full returns the version with the Go toolchain and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
