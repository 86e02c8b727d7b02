// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential brokers access to capability secrets for approved
// transactions.
//
// The broker holds registered credential entries: a capability
// identifier (exact, a "/*" or "/**" pattern, or the general-purpose
// "*" fallback) plus the secret material in an mmap-backed
// [secret.Buffer]. Callers never receive the secret — a grant carries
// an opaque reference derived from the secret with a one-way BLAKE3
// keyed hash, so the reference is usable for audit and for the
// worker's own resolution channel without exposing anything.
//
// Matching prefers the most capability-specific entry: an exact match
// beats a pattern match, a longer pattern prefix beats a shorter one,
// and the "*" fallback only wins when nothing else matches.
//
// Entries are registered directly (tests, static config) or loaded
// from an age-encrypted bundle file via LoadBundle. No component other
// than this package resolves credential references — that separation
// is an architectural invariant of the bridge.
package credential
