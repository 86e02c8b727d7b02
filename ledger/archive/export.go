// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/proctor-works/proctor/ledger"
	"github.com/proctor-works/proctor/lib/codec"
	"github.com/proctor-works/proctor/lib/secret"
)

// FormatVersion is the first byte of every archive file.
const FormatVersion byte = 0x01

// headerSize is FormatVersion (1) + compression tag (1) + uncompressed
// payload size (8, big endian).
const headerSize = 10

// Snapshot is the archived form of the ledger.
type Snapshot struct {
	Version      int                  `cbor:"version"`
	ExportedAt   time.Time            `cbor:"exported_at"`
	Transactions []ledger.Transaction `cbor:"transactions"`
}

// Export serializes the transactions as deterministic CBOR, compresses
// the payload with the requested algorithm, and seals it under a key
// derived from masterKey. The returned bytes are the complete archive
// file content.
//
// Layout: [version: 1] [compression tag: 1] [uncompressed size: 8 BE]
// [sealed blob]. The 10-byte header doubles as the AEAD additional
// data, so header tampering is detected at decryption.
func Export(transactions []ledger.Transaction, masterKey *secret.Buffer, tag CompressionTag) ([]byte, error) {
	snapshot := Snapshot{
		Version:      int(FormatVersion),
		ExportedAt:   time.Now().UTC(),
		Transactions: transactions,
	}
	payload, err := codec.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding ledger snapshot: %w", err)
	}

	compressed, usedTag, err := compress(payload, tag)
	if err != nil {
		return nil, fmt.Errorf("compressing ledger snapshot: %w", err)
	}

	header := make([]byte, headerSize)
	header[0] = FormatVersion
	header[1] = byte(usedTag)
	binary.BigEndian.PutUint64(header[2:], uint64(len(payload)))

	key, err := deriveArchiveKey(masterKey)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	blob, err := sealBlob(compressed, key, header)
	if err != nil {
		return nil, fmt.Errorf("sealing ledger snapshot: %w", err)
	}
	return append(header, blob...), nil
}

// Import decrypts and decodes an archive produced by Export.
func Import(data []byte, masterKey *secret.Buffer) (Snapshot, error) {
	if len(data) < headerSize+encryptedOverhead {
		return Snapshot{}, fmt.Errorf("archive is %d bytes, too short to be valid", len(data))
	}

	header := data[:headerSize]
	if header[0] != FormatVersion {
		return Snapshot{}, fmt.Errorf("archive format version %d is not supported (expected %d)",
			header[0], FormatVersion)
	}
	tag := CompressionTag(header[1])
	uncompressedSize := binary.BigEndian.Uint64(header[2:])

	key, err := deriveArchiveKey(masterKey)
	if err != nil {
		return Snapshot{}, err
	}
	defer key.Close()

	compressed, err := openBlob(data[headerSize:], key, header)
	if err != nil {
		return Snapshot{}, err
	}

	payload, err := decompress(compressed, tag, int(uncompressedSize))
	if err != nil {
		return Snapshot{}, fmt.Errorf("decompressing ledger snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := codec.Unmarshal(payload, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decoding ledger snapshot: %w", err)
	}
	return snapshot, nil
}
