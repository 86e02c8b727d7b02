// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// refDomainKey is the 32-byte key for BLAKE3 keyed hashing of
// credential references. Domain separation ensures a credential
// reference can never collide with any other hash in the system. The
// byte values are the ASCII encoding of the domain name, zero-padded
// to 32 bytes — readable in hex dumps without sacrificing any
// cryptographic property.
var refDomainKey = [32]byte{
	'p', 'r', 'o', 'c', 't', 'o', 'r', '.',
	'c', 'r', 'e', 'd', 'e', 'n', 't', 'i', 'a', 'l', '.',
	'r', 'e', 'f', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Ref is the opaque, one-way identifier for a registered credential.
// It is derived from the capability name and the secret material with
// a BLAKE3 keyed hash, so it identifies the credential stably across
// restarts but cannot be reversed into the secret. Refs are the only
// credential-related value that may appear in logs, audit records, or
// worker task files.
type Ref string

// DeriveRef computes the reference for a capability's secret material.
// The capability name is bound into the hash (with a zero-byte
// separator) so the same secret registered under two capabilities
// yields two distinct refs.
func DeriveRef(capability string, material []byte) Ref {
	hasher, err := blake3.NewKeyed(refDomainKey[:])
	if err != nil {
		// NewKeyed only fails on wrong key length, which the fixed
		// array rules out.
		panic("credential: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(capability))
	hasher.Write([]byte{0})
	hasher.Write(material)

	digest := hasher.Sum(nil)
	return Ref("ref-" + hex.EncodeToString(digest[:8]))
}
