// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/proctor-works/proctor/lib/secret"
)

// Keypair holds an age x25519 keypair. The private key is stored in a
// secret.Buffer (mmap-backed, locked against swap, excluded from core
// dumps). The public key is a plain string, safe to publish.
//
// The caller must call Close when the keypair is no longer needed.
type Keypair struct {
	// PrivateKey is the secret key in AGE-SECRET-KEY-1... format,
	// stored in mmap memory outside the Go heap. Must never be logged
	// or included in CLI arguments.
	PrivateKey *secret.Buffer

	// PublicKey is the corresponding public key in age1... format.
	PublicKey string
}

// Close releases the private key memory (zeros, unlocks, unmaps).
// Idempotent — safe to call multiple times.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair generates a new age x25519 keypair. The private key
// is returned in a secret.Buffer. The caller must call Close on the
// returned Keypair when done.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}

	// Move the private key string into mmap-backed memory immediately.
	privateKeyBytes := []byte(identity.String())
	privateKey, err := secret.NewFromBytes(privateKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	// The string returned by identity.String() is on the heap and will
	// be GC'd — unavoidable since age returns string-typed keys. The
	// mmap buffer is the durable copy.

	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt encrypts plaintext to one or more recipients specified by
// their age public key strings (age1... format). Returns the raw age
// ciphertext, suitable for writing directly to a bundle file.
//
// At least one recipient is required. For Proctor credential bundles,
// recipients are typically the bridge's public key plus an operator
// escrow key for recovery.
func Encrypt(plaintext []byte, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}

	return ciphertext.Bytes(), nil
}

// EncryptJSON marshals v to JSON and encrypts it to the given
// recipients. The intermediate JSON heap copy is zeroed after
// encryption.
func EncryptJSON(v any, recipientKeys []string) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling bundle: %w", err)
	}
	ciphertext, err := Encrypt(plaintext, recipientKeys)
	secret.Zero(plaintext)
	if err != nil {
		return nil, err
	}
	return ciphertext, nil
}

// Decrypt decrypts raw age ciphertext using the given private key.
// Returns the plaintext in a secret.Buffer (mmap-backed, zeroed on
// close).
//
// The private key is borrowed (read via String() to parse the age
// identity) and is NOT closed by this function. The caller must call
// Close on the returned buffer when the plaintext is no longer needed.
func Decrypt(ciphertext []byte, privateKey *secret.Buffer) (*secret.Buffer, error) {
	// Convert the buffer to a string at the API boundary —
	// age.ParseX25519Identity requires a string. The heap copy is
	// brief and request-scoped.
	identity, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}

	if len(plaintext) == 0 {
		// age can produce empty plaintext (encrypted empty input).
		// Return a minimal buffer rather than failing.
		buffer, err := secret.New(1)
		if err != nil {
			return nil, fmt.Errorf("protecting decrypted plaintext: %w", err)
		}
		return buffer, nil
	}

	// Move the decrypted plaintext into mmap-backed memory
	// immediately. NewFromBytes zeros the heap copy.
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("protecting decrypted plaintext: %w", err)
	}
	return buffer, nil
}

// DecryptJSON decrypts raw age ciphertext and unmarshals the plaintext
// JSON into v. The intermediate plaintext buffer is closed before
// returning, so secret values survive only inside v — callers are
// responsible for scrubbing v when it holds secret material.
func DecryptJSON(ciphertext []byte, privateKey *secret.Buffer, v any) error {
	plaintext, err := Decrypt(ciphertext, privateKey)
	if err != nil {
		return err
	}
	defer plaintext.Close()

	if err := json.Unmarshal(plaintext.Bytes(), v); err != nil {
		return fmt.Errorf("unmarshaling bundle: %w", err)
	}
	return nil
}

// ParsePublicKey validates an age public key string. Returns an error
// if the key is not a valid age x25519 public key.
func ParsePublicKey(publicKey string) error {
	_, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

// ParsePrivateKey validates an age private key stored in a
// secret.Buffer. Returns an error if the key is not a valid age x25519
// private key.
func ParsePrivateKey(privateKey *secret.Buffer) error {
	_, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return fmt.Errorf("invalid age private key: %w", err)
	}
	return nil
}
