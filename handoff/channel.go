// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package handoff

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/proctor-works/proctor/lib/task"
)

// ResultSentinel marks the worker's structured result line on stdout.
// Everything after the sentinel must be a single JSON ExecutionResult
// object. Workers that never emit the sentinel fall back to the bare
// final stdout line.
const ResultSentinel = "#proctor:result "

const (
	// DefaultGracePeriod is how long the worker gets between SIGTERM
	// and SIGKILL.
	DefaultGracePeriod = 5 * time.Second

	// maxStderrBytes bounds captured stderr. Diagnostics only; a
	// runaway worker must not grow the bridge's heap.
	maxStderrBytes = 64 * 1024

	// maxLineBytes bounds a single stdout line.
	maxLineBytes = 1024 * 1024
)

// Config configures a Channel.
type Config struct {
	// WorkerCommand is the worker argv. The transient task file path is
	// appended as the final argument. Required.
	WorkerCommand []string

	// TransientDir holds task files while a worker runs. Defaults to
	// os.TempDir().
	TransientDir string

	// Timeout is the wall-clock budget when the descriptor does not
	// carry its own. Defaults to task.DefaultTimeout.
	Timeout time.Duration

	// GracePeriod is the SIGTERM-to-SIGKILL window. Defaults to
	// DefaultGracePeriod.
	GracePeriod time.Duration

	// Logger receives worker progress lines (Debug) and lifecycle
	// events (Info). Defaults to slog.Default().
	Logger *slog.Logger
}

// Channel hands tasks to worker processes. Safe for concurrent use:
// each Execute call runs its own process against its own transient
// file.
type Channel struct {
	workerCommand []string
	transientDir  string
	timeout       time.Duration
	gracePeriod   time.Duration
	logger        *slog.Logger
}

// NewChannel validates the configuration and returns a channel.
func NewChannel(config Config) (*Channel, error) {
	if len(config.WorkerCommand) == 0 {
		return nil, fmt.Errorf("handoff: worker command is required")
	}
	if config.TransientDir == "" {
		config.TransientDir = os.TempDir()
	}
	if config.Timeout <= 0 {
		config.Timeout = task.DefaultTimeout
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = DefaultGracePeriod
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Channel{
		workerCommand: config.WorkerCommand,
		transientDir:  config.TransientDir,
		timeout:       config.Timeout,
		gracePeriod:   config.GracePeriod,
		logger:        config.Logger,
	}, nil
}

// Execute runs one worker for the descriptor and returns its result.
// The descriptor's own TimeoutMs, when set, overrides the channel
// default. The transient task file is removed on every exit path.
//
// Error types: [TimeoutError] when the wall clock expires,
// [ProcessError] on non-zero exit or launch failure, [ParseError] on a
// missing or malformed result line. Caller cancellation returns the
// context's error after the same graceful shutdown path.
func (c *Channel) Execute(ctx context.Context, descriptor task.Descriptor) (task.ExecutionResult, error) {
	if err := descriptor.Validate(); err != nil {
		return task.ExecutionResult{}, err
	}

	timeout := c.timeout
	if descriptor.TimeoutMs > 0 {
		timeout = descriptor.Timeout()
	}

	path, err := task.WriteTransient(c.transientDir, descriptor)
	if err != nil {
		return task.ExecutionResult{}, err
	}
	// Unconditional cleanup. The worker must never find a stale task
	// file from an earlier run.
	defer os.Remove(path)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append(append([]string(nil), c.workerCommand...), path)
	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)

	// Own process group so that termination reaches the worker and
	// everything it spawned (negative PID targets the group).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	gracePeriod := c.gracePeriod
	cmd.Cancel = func() error {
		processGroupID := -cmd.Process.Pid
		if err := syscall.Kill(processGroupID, syscall.SIGTERM); err != nil {
			// SIGTERM failed (group already gone), escalate.
			return syscall.Kill(processGroupID, syscall.SIGKILL)
		}
		go func() {
			time.Sleep(gracePeriod)
			// Best-effort: ESRCH from a dead group is harmless.
			_ = syscall.Kill(processGroupID, syscall.SIGKILL)
		}()
		return nil
	}
	// WaitDelay unblocks Wait even if a grandchild keeps the stdout
	// pipe open after the worker itself died.
	cmd.WaitDelay = gracePeriod + time.Second

	stderr := &boundedBuffer{limit: maxStderrBytes}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return task.ExecutionResult{}, fmt.Errorf("creating worker stdout pipe: %w", err)
	}

	logger := c.logger.With("transaction_id", descriptor.TransactionID)
	logger.Info("worker starting", "command", c.workerCommand[0], "timeout", timeout.String())
	started := time.Now()

	if err := cmd.Start(); err != nil {
		return task.ExecutionResult{}, &ProcessError{
			TransactionID: descriptor.TransactionID,
			ExitCode:      -1,
			Stderr:        fmt.Sprintf("failed to start worker: %v", err),
		}
	}

	sentinelLine, lastLine, scanErr := c.streamOutput(stdout, logger)
	waitErr := cmd.Wait()
	elapsed := time.Since(started)

	// Cancellation and timeout dominate whatever state the output
	// stream was left in.
	if ctx.Err() != nil {
		logger.Info("worker cancelled", "elapsed", elapsed.String())
		return task.ExecutionResult{}, ctx.Err()
	}
	if runCtx.Err() != nil {
		logger.Warn("worker timed out", "timeout", timeout.String(), "stderr", stderr.String())
		return task.ExecutionResult{}, &TimeoutError{
			TransactionID: descriptor.TransactionID,
			Timeout:       timeout,
		}
	}

	if waitErr != nil {
		exitCode := -1
		var exitError *exec.ExitError
		if errors.As(waitErr, &exitError) {
			exitCode = exitError.ExitCode()
		}
		logger.Error("worker failed", "exit_code", exitCode, "elapsed", elapsed.String(), "stderr", stderr.String())
		return task.ExecutionResult{}, &ProcessError{
			TransactionID: descriptor.TransactionID,
			ExitCode:      exitCode,
			Stderr:        stderr.String(),
		}
	}
	if scanErr != nil {
		return task.ExecutionResult{}, &ParseError{
			TransactionID: descriptor.TransactionID,
			Err:           fmt.Errorf("reading worker stdout: %w", scanErr),
		}
	}

	resultLine := sentinelLine
	if resultLine == "" {
		resultLine = lastLine
	}
	if resultLine == "" {
		return task.ExecutionResult{}, &ParseError{
			TransactionID: descriptor.TransactionID,
			Err:           fmt.Errorf("worker produced no output"),
		}
	}

	result, err := task.ParseResult([]byte(resultLine))
	if err != nil {
		return task.ExecutionResult{}, &ParseError{
			TransactionID: descriptor.TransactionID,
			Line:          resultLine,
			Err:           err,
		}
	}

	logger.Info("worker finished",
		"success", result.Success,
		"iterations", result.Iterations,
		"safety_checks", result.SafetyChecksTriggered,
		"elapsed", elapsed.String())
	return result, nil
}

// streamOutput consumes worker stdout line by line. It returns the
// last sentinel-framed payload, the last plain line, and any read
// error. Progress lines go to the logger at Debug.
func (c *Channel) streamOutput(stdout io.Reader, logger *slog.Logger) (sentinelLine, lastLine string, err error) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if payload, ok := strings.CutPrefix(line, ResultSentinel); ok {
			sentinelLine = payload
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lastLine = line
		logger.Debug("worker progress", "line", line)
	}
	return sentinelLine, lastLine, scanner.Err()
}

// boundedBuffer keeps the first limit bytes written and drops the
// rest, tracking how much was discarded.
type boundedBuffer struct {
	data      []byte
	limit     int
	discarded int64
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - len(b.data)
	if remaining > 0 {
		if len(p) <= remaining {
			b.data = append(b.data, p...)
		} else {
			b.data = append(b.data, p[:remaining]...)
			b.discarded += int64(len(p) - remaining)
		}
	} else {
		b.discarded += int64(len(p))
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	if b.discarded > 0 {
		return fmt.Sprintf("%s… (%d bytes truncated)", b.data, b.discarded)
	}
	return string(b.data)
}
