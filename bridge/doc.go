// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge orchestrates one supervised task invocation end to
// end: authorization, credential brokering, worker handoff, and the
// terminal transaction record.
//
// Invoke walks a fixed state machine. Every path through it leaves the
// transaction in exactly one terminal ledger state, and every response
// handed back to the caller is sanitized: failures name only the
// category (authorization denied, credentials unavailable, worker
// error, timeout), never internal diagnostics, stderr content, or
// secret material. Full diagnostics go to the logger and the audit
// sink instead.
package bridge
