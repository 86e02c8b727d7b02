// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"testing"
)

func TestNewAndClose(t *testing.T) {
	buffer, err := New(32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if buffer.Len() != 32 {
		t.Errorf("Len() = %d, want 32", buffer.Len())
	}
	if err := buffer.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	// Idempotent.
	if err := buffer.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		if _, err := New(size); err == nil {
			t.Errorf("New(%d) succeeded, want error", size)
		}
	}
}

func TestNewFromBytesZerosSource(t *testing.T) {
	source := []byte("hunter2-token-value")
	original := append([]byte(nil), source...)

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if !bytes.Equal(buffer.Bytes(), original) {
		t.Errorf("Bytes() = %q, want %q", buffer.Bytes(), original)
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d not zeroed after NewFromBytes", index)
		}
	}
}

func TestNewFromBytesRejectsEmpty(t *testing.T) {
	if _, err := NewFromBytes(nil); err == nil {
		t.Error("NewFromBytes(nil) succeeded, want error")
	}
}

func TestAccessAfterClosePanics(t *testing.T) {
	buffer, err := NewFromBytes([]byte("value"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	buffer.Close()

	defer func() {
		if recover() == nil {
			t.Error("Bytes() after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestZero(t *testing.T) {
	data := []byte{1, 2, 3}
	Zero(data)
	if !bytes.Equal(data, []byte{0, 0, 0}) {
		t.Errorf("Zero left %v", data)
	}
}
