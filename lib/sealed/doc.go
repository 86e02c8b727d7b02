// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption and decryption for Proctor
// credential bundles. It wraps filippo.io/age for the specific
// operations Proctor needs: generate x25519 keypairs, encrypt to
// multiple recipients, and decrypt with a private key.
//
// Credential bundles are age-encrypted JSON objects mapping capability
// identifiers to secret values. They live on disk next to the bridge
// configuration; the bridge decrypts a bundle at startup with its
// identity key and hands the entries to the credential broker.
//
// Private keys and decrypted plaintext are returned as [secret.Buffer]
// values backed by mmap memory outside the Go heap (locked against
// swap, excluded from core dumps, zeroed on Close).
//
// Key exports:
//
//   - [GenerateKeypair] -- new age x25519 keypair in a secret.Buffer
//   - [Encrypt] / [EncryptJSON] -- encrypt to age public key recipients
//   - [Decrypt] / [DecryptJSON] -- decrypt with a secret.Buffer key
//   - [ParsePublicKey] / [ParsePrivateKey] -- key validation
//
// Used by the bridge (decrypt bundles at startup) and
// proctor-credentials (create and update bundles).
//
// Depends on lib/secret for secure memory allocation.
package sealed
