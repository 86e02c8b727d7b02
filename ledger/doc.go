// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger provides the transaction ledger: the append-only,
// process-lifetime record of every privileged-task request from
// authorization through terminal outcome.
//
// The ledger is an explicit, injected store with a defined lifecycle:
// created at process start and passed by reference to every component
// that records transaction state. It is the only mutable structure
// shared between concurrent invocations, and it serializes all writes
// behind a mutex.
//
// Entries are append-mostly: status transitions mutate an existing
// entry in place, and a transaction that has reached a terminal status
// is immutable — a second terminal transition is an error, which is
// how the one-result invariant (exactly one terminal outcome per
// executing transaction) is enforced rather than merely documented.
//
// An optional AuditLog receives one JSONL record per terminal
// transition. Audit records carry identifiers, tiers, timestamps, and
// reasons; they bound the task free text and never contain secret
// material.
package ledger
