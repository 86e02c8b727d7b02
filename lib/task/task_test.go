// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	descriptor := Descriptor{TransactionID: "tx-1", Task: "open the report"}
	descriptor.Normalize()

	if descriptor.MaxIterations != DefaultMaxIterations {
		t.Errorf("MaxIterations = %d, want %d", descriptor.MaxIterations, DefaultMaxIterations)
	}
	if descriptor.TimeoutMs != DefaultTimeout.Milliseconds() {
		t.Errorf("TimeoutMs = %d, want %d", descriptor.TimeoutMs, DefaultTimeout.Milliseconds())
	}
	if !descriptor.SafetyEnabled {
		t.Error("SafetyEnabled = false after Normalize")
	}
}

func TestNormalizeForcesSafety(t *testing.T) {
	descriptor := Descriptor{TransactionID: "tx-1", Task: "x", SafetyEnabled: false}
	descriptor.Normalize()
	if !descriptor.SafetyEnabled {
		t.Error("Normalize did not force safety on")
	}
}

func TestValidate(t *testing.T) {
	valid := Descriptor{
		TransactionID: "tx-1",
		Task:          "open the report",
		MaxIterations: 10,
		TimeoutMs:     1000,
		SafetyEnabled: true,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid descriptor rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Descriptor)
	}{
		{"empty transaction ID", func(d *Descriptor) { d.TransactionID = "" }},
		{"empty task", func(d *Descriptor) { d.Task = "" }},
		{"zero iterations", func(d *Descriptor) { d.MaxIterations = 0 }},
		{"negative timeout", func(d *Descriptor) { d.TimeoutMs = -1 }},
		{"safety disabled", func(d *Descriptor) { d.SafetyEnabled = false }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			descriptor := valid
			test.mutate(&descriptor)
			if err := descriptor.Validate(); err == nil {
				t.Error("Validate accepted an invalid descriptor")
			}
		})
	}
}

func TestDescriptorWireShape(t *testing.T) {
	descriptor := Descriptor{
		TransactionID:      "tx-abc",
		Task:               "open the quarterly report",
		MaxIterations:      10,
		TimeoutMs:          300000,
		EnvironmentProfile: json.RawMessage(`{"display":":0"}`),
		SafetyEnabled:      true,
		CredentialRef:      "ref-0011223344556677",
	}

	data, err := json.Marshal(descriptor)
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{
		`"transaction_id"`, `"task"`, `"max_iterations"`, `"timeout_ms"`,
		`"environment_profile"`, `"safety_enabled"`, `"credential_ref"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Errorf("wire encoding missing %s: %s", field, data)
		}
	}
}

func TestWriteReadTransient(t *testing.T) {
	dir := t.TempDir()
	descriptor := Descriptor{TransactionID: "tx-1", Task: "open the report"}
	descriptor.Normalize()

	path, err := WriteTransient(dir, descriptor)
	if err != nil {
		t.Fatalf("WriteTransient: %v", err)
	}
	if path != TransientPath(dir, "tx-1") {
		t.Errorf("path = %q", path)
	}
	if !strings.Contains(path, "tx-1") {
		t.Errorf("path %q does not embed the transaction ID", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		t.Errorf("task file mode = %o, want 0600", mode)
	}

	loaded, err := ReadTransient(path)
	if err != nil {
		t.Fatalf("ReadTransient: %v", err)
	}
	if loaded.Task != descriptor.Task || loaded.TransactionID != descriptor.TransactionID {
		t.Errorf("round trip mismatch: %+v", loaded)
	}

	// No temporary file left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the task file", len(entries))
	}
}

func TestWriteTransientRejectsInvalid(t *testing.T) {
	if _, err := WriteTransient(t.TempDir(), Descriptor{}); err == nil {
		t.Error("WriteTransient accepted an empty descriptor")
	}
}

func TestParseResult(t *testing.T) {
	line := []byte(`{"success":true,"execution_log":[{"action_type":"click","action_details":"submit button"}],"iterations":3,"duration_seconds":4.2,"safety_checks_triggered":1}`)
	result, err := ParseResult(line)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if !result.Success || result.Iterations != 3 || result.SafetyChecksTriggered != 1 {
		t.Errorf("result = %+v", result)
	}
	if len(result.ExecutionLog) != 1 || result.ExecutionLog[0].ActionType != "click" {
		t.Errorf("ExecutionLog = %+v", result.ExecutionLog)
	}
}

func TestParseResultRejectsGarbage(t *testing.T) {
	for _, line := range []string{
		"",
		"still working on it",
		"[1,2,3]",
		`{"success":true} trailing`,
		`{"success":`,
	} {
		if _, err := ParseResult([]byte(line)); err == nil {
			t.Errorf("ParseResult(%q) succeeded", line)
		}
	}
}

func TestParseResultFailureWithoutDetail(t *testing.T) {
	result, err := ParseResult([]byte(`{"success":false}`))
	if err != nil {
		t.Fatal(err)
	}
	if result.Error == "" {
		t.Error("failure result has no error text")
	}
}
