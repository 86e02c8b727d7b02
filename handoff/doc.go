// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package handoff launches worker processes and collects their
// structured results.
//
// The channel writes the task descriptor to a transient file, starts
// the worker with the file path as its final argument, and streams
// stdout line by line. Non-final lines are progress output and are
// surfaced through the logger; the result is the last line carrying
// the "#proctor:result " sentinel, or the bare final line for workers
// that predate the sentinel. Stderr is captured (bounded) for
// diagnostics only and never becomes user-facing text.
//
// A hard wall-clock timeout covers the whole worker run. On timeout or
// caller cancellation the worker's process group receives SIGTERM,
// then SIGKILL after a grace period. The transient file is removed on
// every exit path.
//
// Failures are classified into three error types: [TimeoutError],
// [ProcessError], and [ParseError].
package handoff
