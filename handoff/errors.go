// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package handoff

import (
	"fmt"
	"time"
)

// TimeoutError reports that the worker exceeded its wall-clock budget
// and was terminated.
type TimeoutError struct {
	TransactionID string
	Timeout       time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("worker for transaction %s exceeded %s timeout", e.TransactionID, e.Timeout)
}

// ProcessError reports that the worker exited with a non-zero code or
// failed to run at all. Stderr holds bounded diagnostic output; it is
// for logs and error contexts, never for user-facing responses.
type ProcessError struct {
	TransactionID string
	ExitCode      int
	Stderr        string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("worker for transaction %s exited with code %d", e.TransactionID, e.ExitCode)
}

// ParseError reports that the worker exited successfully but its
// result line was missing or not a valid result object.
type ParseError struct {
	TransactionID string
	Line          string
	Err           error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("worker for transaction %s produced an unparseable result: %v", e.TransactionID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
