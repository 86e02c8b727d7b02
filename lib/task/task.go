// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// DefaultMaxIterations bounds the worker's action loop when the
	// caller does not specify a limit.
	DefaultMaxIterations = 10

	// DefaultTimeout is the wall-clock budget for one worker run.
	DefaultTimeout = 5 * time.Minute
)

// Descriptor is the unit of work handed to the worker process. It is
// created immediately before handoff, written once, and deleted from
// transient storage unconditionally after the worker exits.
type Descriptor struct {
	TransactionID string `json:"transaction_id"`
	Task          string `json:"task"`

	// MaxIterations bounds the worker's internal action loop.
	MaxIterations int `json:"max_iterations"`

	// TimeoutMs is advisory for the worker; the bridge enforces its own
	// wall-clock timeout regardless.
	TimeoutMs int64 `json:"timeout_ms"`

	// EnvironmentProfile is opaque configuration describing the target
	// display or environment. The bridge passes it through unparsed.
	EnvironmentProfile json.RawMessage `json:"environment_profile,omitempty"`

	// SafetyEnabled is always true. The field exists on the wire so the
	// worker can verify it was not launched by something that disabled
	// its safety checks.
	SafetyEnabled bool `json:"safety_enabled"`

	// CredentialRef is the opaque reference issued by the credential
	// broker. Never the secret itself.
	CredentialRef string `json:"credential_ref,omitempty"`
}

// Normalize fills defaults: MaxIterations when unset or negative,
// TimeoutMs when unset, and SafetyEnabled unconditionally.
func (d *Descriptor) Normalize() {
	if d.MaxIterations <= 0 {
		d.MaxIterations = DefaultMaxIterations
	}
	if d.TimeoutMs <= 0 {
		d.TimeoutMs = DefaultTimeout.Milliseconds()
	}
	d.SafetyEnabled = true
}

// Validate reports the first structural problem with a descriptor.
// Call after Normalize.
func (d *Descriptor) Validate() error {
	if d.TransactionID == "" {
		return fmt.Errorf("task descriptor: transaction ID is empty")
	}
	if d.Task == "" {
		return fmt.Errorf("task descriptor: task text is empty")
	}
	if d.MaxIterations <= 0 {
		return fmt.Errorf("task descriptor: max iterations %d is not positive", d.MaxIterations)
	}
	if d.TimeoutMs <= 0 {
		return fmt.Errorf("task descriptor: timeout %dms is not positive", d.TimeoutMs)
	}
	if !d.SafetyEnabled {
		return fmt.Errorf("task descriptor: safety checks must be enabled")
	}
	return nil
}

// Timeout returns the advisory timeout as a duration.
func (d *Descriptor) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}
