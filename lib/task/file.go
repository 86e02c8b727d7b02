// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TransientPath returns the task file path for a transaction inside
// dir. The transaction ID is embedded in the name so concurrent
// transactions never collide.
func TransientPath(dir, transactionID string) string {
	return filepath.Join(dir, "proctor-task-"+transactionID+".json")
}

// WriteTransient atomically writes the descriptor to its transient
// file under dir and returns the path. The file is written to a
// temporary location, fsynced, and renamed into place so the worker
// never observes a partial descriptor.
//
// The file is created with mode 0600. The caller is responsible for
// removing it after the worker exits.
func WriteTransient(dir string, descriptor Descriptor) (string, error) {
	if err := descriptor.Validate(); err != nil {
		return "", err
	}

	data, err := json.Marshal(descriptor)
	if err != nil {
		return "", fmt.Errorf("marshaling task descriptor: %w", err)
	}
	data = append(data, '\n')

	path := TransientPath(dir, descriptor.TransactionID)
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("creating temporary task file: %w", err)
	}

	// Write, sync, close, rename. If any step fails, remove the
	// temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("writing temporary task file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return "", fmt.Errorf("syncing temporary task file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("closing temporary task file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return "", fmt.Errorf("renaming task file into place: %w", err)
	}
	return path, nil
}

// ReadTransient loads a descriptor from its transient file. Used by
// worker-side code; the bridge only writes.
func ReadTransient(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("reading task file: %w", err)
	}
	var descriptor Descriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return Descriptor{}, fmt.Errorf("decoding task file %s: %w", path, err)
	}
	if err := descriptor.Validate(); err != nil {
		return Descriptor{}, fmt.Errorf("task file %s: %w", path, err)
	}
	return descriptor, nil
}
