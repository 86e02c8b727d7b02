// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive exports ledger snapshots for at-rest retention.
//
// A snapshot is encoded as deterministic CBOR, compressed with a
// tagged algorithm (none, lz4, or zstd), and sealed with
// XChaCha20-Poly1305 under a key derived from the operator's archive
// master key via HKDF-SHA256. The archive header (format version,
// compression tag, uncompressed size) is bound into the AEAD as
// additional authenticated data, so a tampered header fails
// authentication rather than producing garbage.
package archive
