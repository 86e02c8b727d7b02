// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides deterministic CBOR encoding for Proctor audit
// exports. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2) so that the same ledger contents always serialize to identical
// bytes — a requirement for content-addressed archive retention and
// for comparing exports across machines.
//
// The decoder ignores unknown fields for forward compatibility, so an
// older bridge can read archives written by a newer one.
package codec
