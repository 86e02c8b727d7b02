// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build metadata for the proctor binaries.
//
// Release builds inject the values with -ldflags:
//
//	go build -ldflags "-X github.com/proctor-works/proctor/lib/version.Commit=$(git rev-parse --short HEAD)"
//
// Development builds leave them empty, and Info falls back to the VCS
// stamp the Go toolchain embeds when building from a git checkout.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is the semantic version of this build. Set via -ldflags for
// releases.
var Version = "0.1.0-dev"

// Commit and BuildTime may be injected via -ldflags. When left empty
// they are resolved from the embedded VCS stamp instead.
var (
	Commit    = ""
	BuildTime = ""
)

// Info returns the one-line string printed by --version: version,
// commit (with a -dirty suffix for modified checkouts), and build
// time, omitting whatever is unknown.
func Info() string {
	commit, buildTime := Commit, BuildTime
	dirty := false
	if commit == "" {
		commit, buildTime, dirty = vcsStamp()
	}
	if commit == "" {
		return Version
	}
	if dirty {
		commit += "-dirty"
	}
	if buildTime == "" {
		return fmt.Sprintf("%s (%s)", Version, commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, buildTime)
}

// vcsStamp reads the VCS settings from the binary's build info. All
// values may be empty: test binaries and builds outside a checkout
// carry no stamp.
func vcsStamp() (commit, buildTime string, dirty bool) {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", "", false
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
		case "vcs.time":
			buildTime = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return commit, buildTime, dirty
}
