// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// Key files are small. Anything larger than this is a wrong path, not
// a key, and refusing it avoids pinning a large mmap region.
const maxKeyFileSize = 64 * 1024

// ReadFromPath loads secret material from a file, or from stdin when
// path is "-". Blank lines and lines starting with "#" are skipped, so
// identity files written by age-keygen (which carry "# created:" and
// "# public key:" commentary above the key) load directly; the first
// remaining line, whitespace-trimmed, is the secret.
//
// Regular files must not be readable by group or other. The secret is
// returned in an mmap-backed Buffer and every intermediate heap copy
// is zeroed before returning; the caller owns the Buffer and must
// Close it.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "" {
		return nil, fmt.Errorf("secret: no key path configured")
	}
	if path == "-" {
		return readSecretLine(os.Stdin, "stdin")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Mode().IsRegular() {
		if perm := info.Mode().Perm(); perm&0o077 != 0 {
			return nil, fmt.Errorf("secret: %s is accessible by group or other (mode %04o); chmod 600 it", path, perm)
		}
		if info.Size() > maxKeyFileSize {
			return nil, fmt.Errorf("secret: %s is %d bytes, larger than any key file (%d byte cap)", path, info.Size(), maxKeyFileSize)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readSecretLine(file, path)
}

// readSecretLine scans for the first line that is neither blank nor
// commentary and moves it into a Buffer. Every scanned line is zeroed
// in the scanner's buffer, so skipped commentary and the secret itself
// leave no heap residue beyond the scanner's own reuse window.
func readSecretLine(reader io.Reader, source string) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		raw := scanner.Bytes()
		line := bytes.TrimSpace(raw)
		if len(line) == 0 || line[0] == '#' {
			Zero(raw)
			continue
		}
		// NewFromBytes zeros line; raw still holds any surrounding
		// whitespace.
		buffer, err := NewFromBytes(line)
		Zero(raw)
		return buffer, err
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return nil, fmt.Errorf("secret: %s holds no secret material", source)
}
