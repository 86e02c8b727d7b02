// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/proctor-works/proctor/lib/secret"
)

// keySize is the size of the derived archive encryption key.
const keySize = 32

// hkdfInfoArchive is the HKDF info string for archive key derivation.
// Changing it invalidates every existing archive.
var hkdfInfoArchive = []byte("proctor.ledger.archive.v1")

// encryptedOverhead is the byte overhead of sealBlob's output beyond
// the plaintext: 24 (XChaCha20-Poly1305 nonce) + 16 (Poly1305 tag).
const encryptedOverhead = chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// deriveArchiveKey derives the archive encryption key from the
// operator's master key via HKDF-SHA256. The master key is borrowed,
// not closed; the returned buffer must be closed by the caller.
func deriveArchiveKey(masterKey *secret.Buffer) (*secret.Buffer, error) {
	reader := hkdf.New(sha256.New, masterKey.Bytes(), nil, hkdfInfoArchive)
	derived := make([]byte, keySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	return secret.NewFromBytes(derived)
}

// sealBlob encrypts plaintext with XChaCha20-Poly1305:
//
//	[Nonce: 24 bytes (random)] [Ciphertext+Tag: N+16 bytes]
//
// The additionalData is authenticated but not stored; the caller keeps
// it alongside the blob (the archive header plays this role).
func sealBlob(plaintext []byte, key *secret.Buffer, additionalData []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}

	output := make([]byte, chacha20poly1305.NonceSizeX, chacha20poly1305.NonceSizeX+len(plaintext)+aead.Overhead())
	copy(output, nonce[:])
	return aead.Seal(output, nonce[:], plaintext, additionalData), nil
}

// openBlob decrypts a blob produced by sealBlob, authenticating it
// against the same additionalData.
func openBlob(blob []byte, key *secret.Buffer, additionalData []byte) ([]byte, error) {
	if len(blob) < encryptedOverhead {
		return nil, fmt.Errorf("encrypted blob is %d bytes, minimum is %d (nonce + tag)",
			len(blob), encryptedOverhead)
	}

	aead, err := chacha20poly1305.NewX(key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	nonce := blob[:chacha20poly1305.NonceSizeX]
	ciphertext := blob[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("AEAD decryption failed (wrong key or tampered archive): %w", err)
	}
	return plaintext, nil
}
