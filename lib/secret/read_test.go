// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  sk-abc123\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "sk-abc123" {
		t.Errorf("String() = %q, want %q (whitespace trimmed)", got, "sk-abc123")
	}
}

func TestReadFromPathEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadFromPath(path); err == nil {
		t.Error("ReadFromPath on whitespace-only file succeeded, want error")
	}
}

func TestReadFromPathMissing(t *testing.T) {
	if _, err := ReadFromPath(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("ReadFromPath on missing file succeeded, want error")
	}
}

func TestReadFromPathSkipsKeygenCommentary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.key")
	content := "# created: 2026-08-28T10:00:00Z\n" +
		"# public key: age1examplepublickey\n" +
		"\n" +
		"AGE-SECRET-KEY-EXAMPLE\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "AGE-SECRET-KEY-EXAMPLE" {
		t.Errorf("String() = %q, want the key line with commentary skipped", got)
	}
}

func TestReadFromPathRejectsLoosePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.key")
	if err := os.WriteFile(path, []byte("AGE-SECRET-KEY-EXAMPLE\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Chmod after the write so the umask cannot mask the test.
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadFromPath(path); err == nil {
		t.Error("ReadFromPath on a group-readable key file succeeded, want error")
	}
}

func TestReadFromPathEmptyPath(t *testing.T) {
	if _, err := ReadFromPath(""); err == nil {
		t.Error("ReadFromPath(\"\") succeeded, want error")
	}
}
