// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Action is one entry in the worker's execution log.
type Action struct {
	ActionType    string `json:"action_type"`
	ActionDetails string `json:"action_details"`
}

// ExecutionResult is the structured outcome the worker reports on its
// final stdout line. Exactly one result, or a failure or timeout, is
// produced per transaction that reaches execution.
type ExecutionResult struct {
	Success               bool     `json:"success"`
	ExecutionLog          []Action `json:"execution_log"`
	Iterations            int      `json:"iterations"`
	DurationSeconds       float64  `json:"duration_seconds"`
	SafetyChecksTriggered int      `json:"safety_checks_triggered"`

	// Error is set only when Success is false.
	Error string `json:"error,omitempty"`
}

// ParseResult decodes a worker result line. Unknown fields are
// tolerated so a newer worker can report more than the bridge reads,
// but the line must be a single JSON object with nothing after it.
func ParseResult(line []byte) (ExecutionResult, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ExecutionResult{}, fmt.Errorf("worker result is not a JSON object")
	}
	var result ExecutionResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return ExecutionResult{}, fmt.Errorf("decoding worker result: %w", err)
	}
	if !result.Success && result.Error == "" {
		result.Error = "worker reported failure without detail"
	}
	return result, nil
}
