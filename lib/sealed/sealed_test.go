// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundtrip(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	plaintext := []byte(`{"desktop/control":"token-value"}`)
	original := append([]byte(nil), plaintext...)

	ciphertext, err := Encrypt(plaintext, []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(ciphertext, original) {
		t.Error("ciphertext contains plaintext")
	}

	decrypted, err := Decrypt(ciphertext, keypair.PrivateKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	defer decrypted.Close()

	if !bytes.Equal(decrypted.Bytes(), original) {
		t.Errorf("roundtrip = %q, want %q", decrypted.Bytes(), original)
	}
}

func TestEncryptToMultipleRecipients(t *testing.T) {
	first, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer first.Close()
	second, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	ciphertext, err := Encrypt([]byte("shared"), []string{first.PublicKey, second.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	for name, keypair := range map[string]*Keypair{"first": first, "second": second} {
		decrypted, err := Decrypt(ciphertext, keypair.PrivateKey)
		if err != nil {
			t.Fatalf("Decrypt with %s key: %v", name, err)
		}
		if got := decrypted.String(); got != "shared" {
			t.Errorf("%s key decrypted %q, want %q", name, got, "shared")
		}
		decrypted.Close()
	}
}

func TestEncryptRequiresRecipients(t *testing.T) {
	if _, err := Encrypt([]byte("x"), nil); err == nil {
		t.Error("Encrypt with no recipients succeeded, want error")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	sender, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()
	other, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	ciphertext, err := Encrypt([]byte("x"), []string{sender.PublicKey})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(ciphertext, other.PrivateKey); err == nil {
		t.Error("Decrypt with wrong key succeeded, want error")
	}
}

func TestJSONRoundtrip(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer keypair.Close()

	bundle := map[string]string{
		"desktop/control": "secret-a",
		"browser/session": "secret-b",
	}
	ciphertext, err := EncryptJSON(bundle, []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("EncryptJSON: %v", err)
	}

	var decoded map[string]string
	if err := DecryptJSON(ciphertext, keypair.PrivateKey, &decoded); err != nil {
		t.Fatalf("DecryptJSON: %v", err)
	}
	if len(decoded) != 2 || decoded["desktop/control"] != "secret-a" || decoded["browser/session"] != "secret-b" {
		t.Errorf("DecryptJSON = %v, want %v", decoded, bundle)
	}
}

func TestParseKeys(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	defer keypair.Close()

	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("ParsePublicKey on valid key: %v", err)
	}
	if err := ParsePublicKey("age1notakey"); err == nil {
		t.Error("ParsePublicKey on garbage succeeded, want error")
	}
	if err := ParsePrivateKey(keypair.PrivateKey); err != nil {
		t.Errorf("ParsePrivateKey on valid key: %v", err)
	}
}
