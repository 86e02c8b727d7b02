// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoWithInjectedValues(t *testing.T) {
	defer func(v, c, b string) { Version, Commit, BuildTime = v, c, b }(Version, Commit, BuildTime)

	Version, Commit, BuildTime = "1.2.3", "abc1234", "2026-08-01T00:00:00Z"
	if got, want := Info(), "1.2.3 (abc1234, 2026-08-01T00:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	BuildTime = ""
	if got, want := Info(), "1.2.3 (abc1234)"; got != want {
		t.Errorf("Info() without build time = %q, want %q", got, want)
	}
}

func TestInfoAlwaysCarriesVersion(t *testing.T) {
	// Test binaries have no VCS stamp and no ldflags; Info must still
	// produce something useful.
	if got := Info(); !strings.HasPrefix(got, Version) {
		t.Errorf("Info() = %q, want prefix %q", got, Version)
	}
}
