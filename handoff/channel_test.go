// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package handoff

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/proctor-works/proctor/lib/task"
)

// scriptWorker writes a shell script and returns the argv to run it.
// The script receives the task file path as $1.
func scriptWorker(t *testing.T, body string) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0700); err != nil {
		t.Fatal(err)
	}
	return []string{"/bin/sh", path}
}

func testChannel(t *testing.T, worker []string) (*Channel, string) {
	t.Helper()
	transientDir := t.TempDir()
	channel, err := NewChannel(Config{
		WorkerCommand: worker,
		TransientDir:  transientDir,
		Timeout:       10 * time.Second,
		GracePeriod:   200 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return channel, transientDir
}

func testDescriptor(id string) task.Descriptor {
	descriptor := task.Descriptor{TransactionID: id, Task: "open the report"}
	descriptor.Normalize()
	return descriptor
}

func assertTransientClean(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("transient dir not cleaned up: %d entries remain", len(entries))
	}
}

const successResult = `{"success":true,"execution_log":[{"action_type":"click","action_details":"submit"}],"iterations":2,"duration_seconds":0.5,"safety_checks_triggered":1}`

func TestExecuteSentinelResult(t *testing.T) {
	worker := scriptWorker(t, fmt.Sprintf(`
cat "$1" >/dev/null || exit 3
echo "progress: looking at the screen"
echo "progress: clicking"
echo '#proctor:result %s'
`, successResult))
	channel, transientDir := testChannel(t, worker)

	result, err := channel.Execute(context.Background(), testDescriptor("tx-sentinel"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success || result.Iterations != 2 || result.SafetyChecksTriggered != 1 {
		t.Errorf("result = %+v", result)
	}
	assertTransientClean(t, transientDir)
}

func TestExecuteBareLastLineFallback(t *testing.T) {
	worker := scriptWorker(t, fmt.Sprintf(`
echo "progress line"
echo '%s'
`, successResult))
	channel, transientDir := testChannel(t, worker)

	result, err := channel.Execute(context.Background(), testDescriptor("tx-bare"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v", result)
	}
	assertTransientClean(t, transientDir)
}

func TestExecuteSentinelBeatsLaterProgress(t *testing.T) {
	// Trailing progress after the sentinel must not displace the result.
	worker := scriptWorker(t, fmt.Sprintf(`
echo '#proctor:result %s'
echo "shutting down"
`, successResult))
	channel, _ := testChannel(t, worker)

	result, err := channel.Execute(context.Background(), testDescriptor("tx-order"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v", result)
	}
}

func TestExecuteTimeout(t *testing.T) {
	worker := scriptWorker(t, `sleep 30`)
	channel, transientDir := testChannel(t, worker)

	descriptor := testDescriptor("tx-timeout")
	descriptor.TimeoutMs = 200

	started := time.Now()
	_, err := channel.Execute(context.Background(), descriptor)
	elapsed := time.Since(started)

	var timeoutError *TimeoutError
	if !errors.As(err, &timeoutError) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if timeoutError.TransactionID != "tx-timeout" {
		t.Errorf("TransactionID = %q", timeoutError.TransactionID)
	}
	if elapsed > 5*time.Second {
		t.Errorf("timeout took %s, worker was not terminated promptly", elapsed)
	}
	assertTransientClean(t, transientDir)
}

func TestExecuteNonZeroExit(t *testing.T) {
	worker := scriptWorker(t, `
echo "made some progress"
echo "disk on fire" >&2
exit 7
`)
	channel, transientDir := testChannel(t, worker)

	_, err := channel.Execute(context.Background(), testDescriptor("tx-exit"))

	var processError *ProcessError
	if !errors.As(err, &processError) {
		t.Fatalf("error = %v, want ProcessError", err)
	}
	if processError.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", processError.ExitCode)
	}
	if processError.Stderr == "" || !strings.Contains(processError.Stderr, "disk on fire") {
		t.Errorf("Stderr = %q, want captured diagnostics", processError.Stderr)
	}
	assertTransientClean(t, transientDir)
}

func TestExecuteMalformedResult(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"garbage last line", `echo "this is not json"`},
		{"garbage sentinel", `echo '#proctor:result not json either'`},
		{"no output", `true`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			channel, transientDir := testChannel(t, scriptWorker(t, test.body))
			_, err := channel.Execute(context.Background(), testDescriptor("tx-parse"))

			var parseError *ParseError
			if !errors.As(err, &parseError) {
				t.Fatalf("error = %v, want ParseError", err)
			}
			assertTransientClean(t, transientDir)
		})
	}
}

func TestExecuteCancellation(t *testing.T) {
	worker := scriptWorker(t, `sleep 30`)
	channel, transientDir := testChannel(t, worker)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := channel.Execute(ctx, testDescriptor("tx-cancel"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	assertTransientClean(t, transientDir)
}

func TestExecuteConcurrentIsolation(t *testing.T) {
	// Each worker echoes back the transaction ID it read from its own
	// task file. Concurrent calls must never see each other's files.
	worker := scriptWorker(t, `
tx=$(sed -n 's/.*"transaction_id":"\([^"]*\)".*/\1/p' "$1")
echo "#proctor:result {\"success\":true,\"execution_log\":[{\"action_type\":\"echo\",\"action_details\":\"$tx\"}],\"iterations\":1,\"duration_seconds\":0.1,\"safety_checks_triggered\":0}"
`)
	channel, transientDir := testChannel(t, worker)

	const parallel = 8
	var group sync.WaitGroup
	results := make([]task.ExecutionResult, parallel)
	errs := make([]error, parallel)
	for index := 0; index < parallel; index++ {
		index := index
		group.Add(1)
		go func() {
			defer group.Done()
			id := fmt.Sprintf("tx-parallel-%d", index)
			results[index], errs[index] = channel.Execute(context.Background(), testDescriptor(id))
		}()
	}
	group.Wait()

	for index := 0; index < parallel; index++ {
		if errs[index] != nil {
			t.Fatalf("worker %d: %v", index, errs[index])
		}
		want := fmt.Sprintf("tx-parallel-%d", index)
		log := results[index].ExecutionLog
		if len(log) != 1 || log[0].ActionDetails != want {
			t.Errorf("worker %d read %+v, want its own task file (%s)", index, log, want)
		}
	}
	assertTransientClean(t, transientDir)
}

func TestNewChannelRequiresCommand(t *testing.T) {
	if _, err := NewChannel(Config{}); err == nil {
		t.Error("NewChannel accepted an empty worker command")
	}
}

func TestBoundedBuffer(t *testing.T) {
	buffer := &boundedBuffer{limit: 8}
	buffer.Write([]byte("12345"))
	buffer.Write([]byte("6789"))
	got := buffer.String()
	if !strings.Contains(got, "12345678") || !strings.Contains(got, "truncated") {
		t.Errorf("String() = %q", got)
	}
}
