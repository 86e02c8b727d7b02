// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"fmt"
	"os"
	"sort"

	"github.com/proctor-works/proctor/lib/sealed"
	"github.com/proctor-works/proctor/lib/secret"
)

// LoadBundle decrypts an age-encrypted credential bundle and registers
// every entry with the broker. The bundle plaintext is a JSON object
// mapping capability identifiers to secret values:
//
//	{"desktop/control": "…", "browser/**": "…", "*": "…"}
//
// The identity key is borrowed, not closed. Entries are registered in
// sorted capability order so refs and log output are deterministic for
// a given bundle.
//
// Each secret value is moved into an mmap-backed buffer. The decrypted
// JSON intermediate lives briefly on the heap as Go strings, which
// cannot be zeroed in place; the bundle file and the buffers are the
// durable copies.
func (b *Broker) LoadBundle(path string, identityKey *secret.Buffer) error {
	ciphertext, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading credential bundle: %w", err)
	}

	var bundle map[string]string
	if err := sealed.DecryptJSON(ciphertext, identityKey, &bundle); err != nil {
		return fmt.Errorf("decrypting credential bundle %s: %w", path, err)
	}
	if len(bundle) == 0 {
		return fmt.Errorf("credential bundle %s is empty", path)
	}

	capabilities := make([]string, 0, len(bundle))
	for capability := range bundle {
		capabilities = append(capabilities, capability)
	}
	sort.Strings(capabilities)

	for _, capability := range capabilities {
		material, err := secret.NewFromBytes([]byte(bundle[capability]))
		if err != nil {
			return fmt.Errorf("protecting secret for %s: %w", capability, err)
		}
		if _, err := b.Register(capability, material); err != nil {
			material.Close()
			return fmt.Errorf("registering %s: %w", capability, err)
		}
	}
	return nil
}
