// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/proctor-works/proctor/handoff"
	"github.com/proctor-works/proctor/ledger"
	"github.com/proctor-works/proctor/lib/authorize"
	"github.com/proctor-works/proctor/lib/clock"
	"github.com/proctor-works/proctor/lib/credential"
	"github.com/proctor-works/proctor/lib/task"
)

// User-facing failure messages. Categories only: the caller learns
// what kind of thing went wrong, never the internals.
const (
	msgDenied             = "authorization denied"
	msgCredentialDenied   = "required credentials unavailable"
	msgApprovalExpired    = "authorization expired before execution"
	msgWorkerError        = "worker execution failed"
	msgTimedOut           = "worker execution timed out"
	msgCancelled          = "invocation cancelled"
	msgInternal           = "internal error"
	msgWorkerUnsuccessful = "task was not completed successfully"
)

// DefaultRequiredCapabilities is what a task needs when the caller
// does not name its own capability requirements.
var DefaultRequiredCapabilities = []string{"desktop/control"}

// Options tunes one invocation. The zero value uses defaults.
type Options struct {
	// MaxIterations bounds the worker's action loop. Zero means
	// task.DefaultMaxIterations.
	MaxIterations int

	// Timeout overrides the wall-clock budget. Zero means the handoff
	// channel's default.
	Timeout time.Duration

	// EnvironmentProfile is passed through to the worker unparsed.
	EnvironmentProfile json.RawMessage

	// RequiredCapabilities overrides DefaultRequiredCapabilities.
	RequiredCapabilities []string
}

// Response is what the caller gets back. It is always safe to show to
// the end user verbatim.
type Response struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`

	// Message is a category on failure, a summary on success.
	Message string `json:"message"`

	// Actions is the worker's ordered execution log. Success only.
	Actions []task.Action `json:"actions,omitempty"`

	// SafetyChecksTriggered counts in-worker safety interventions.
	SafetyChecksTriggered int `json:"safety_checks_triggered,omitempty"`

	// DurationSeconds is the worker-reported elapsed time.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Counters is a snapshot of the bridge's execution counters by
// outcome.
type Counters struct {
	Completed        int64
	Failed           int64
	TimedOut         int64
	Denied           int64
	CredentialDenied int64
}

// Config wires a Bridge. Coordinator, Broker, Channel, and Ledger are
// required.
type Config struct {
	Coordinator *authorize.Coordinator
	Broker      *credential.Broker
	Channel     *handoff.Channel
	Ledger      *ledger.Ledger

	// RequiredCapabilities defaults to DefaultRequiredCapabilities.
	RequiredCapabilities []string

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Bridge is the orchestrator. Safe for concurrent use: each Invoke
// call runs independently.
type Bridge struct {
	coordinator  *authorize.Coordinator
	broker       *credential.Broker
	channel      *handoff.Channel
	ledger       *ledger.Ledger
	capabilities []string
	clock        clock.Clock
	logger       *slog.Logger

	completed        atomic.Int64
	failed           atomic.Int64
	timedOut         atomic.Int64
	denied           atomic.Int64
	credentialDenied atomic.Int64
}

// New creates a Bridge.
func New(config Config) (*Bridge, error) {
	if config.Coordinator == nil {
		return nil, fmt.Errorf("bridge: coordinator is required")
	}
	if config.Broker == nil {
		return nil, fmt.Errorf("bridge: credential broker is required")
	}
	if config.Channel == nil {
		return nil, fmt.Errorf("bridge: handoff channel is required")
	}
	if config.Ledger == nil {
		return nil, fmt.Errorf("bridge: ledger is required")
	}
	if len(config.RequiredCapabilities) == 0 {
		config.RequiredCapabilities = DefaultRequiredCapabilities
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Bridge{
		coordinator:  config.Coordinator,
		broker:       config.Broker,
		channel:      config.Channel,
		ledger:       config.Ledger,
		capabilities: config.RequiredCapabilities,
		clock:        config.Clock,
		logger:       config.Logger,
	}, nil
}

// Invoke runs one supervised task. The transaction always ends in
// exactly one terminal ledger state; the returned Response never
// carries internal diagnostics. The error return is reserved for
// bridge-internal faults (ledger corruption, misconfiguration), not
// for task failures, which are reported through the Response.
func (b *Bridge) Invoke(ctx context.Context, requesterID, taskDescription string, options Options) (Response, error) {
	decision, err := b.coordinator.Authorize(ctx, requesterID, taskDescription)
	if err != nil {
		return Response{Message: msgInternal}, fmt.Errorf("authorizing: %w", err)
	}
	logger := b.logger.With("transaction_id", decision.TransactionID)

	if !decision.Approved {
		b.denied.Add(1)
		return Response{
			TransactionID: decision.TransactionID,
			Message:       fmt.Sprintf("%s: %s", msgDenied, decision.Reason),
		}, nil
	}

	capabilities := options.RequiredCapabilities
	if len(capabilities) == 0 {
		capabilities = b.capabilities
	}
	grant := b.broker.RequestCredential(decision.TransactionID, capabilities, decision.ExpiresAt)
	if !grant.Granted {
		b.credentialDenied.Add(1)
		if err := b.ledger.Transition(decision.TransactionID, ledger.StatusCredentialDenied, grant.Reason); err != nil {
			return Response{Message: msgInternal}, fmt.Errorf("recording credential denial: %w", err)
		}
		return Response{
			TransactionID: decision.TransactionID,
			Message:       msgCredentialDenied,
		}, nil
	}
	if err := b.ledger.SetCredentialRef(decision.TransactionID, string(grant.Ref)); err != nil {
		return Response{Message: msgInternal}, fmt.Errorf("recording credential ref: %w", err)
	}

	// The approval window and caller cancellation are both checked
	// after the potentially slow stages and before anything launches.
	if b.clock.Now().After(decision.ExpiresAt) {
		return b.failBeforeLaunch(decision.TransactionID, "approval expired before launch", msgApprovalExpired)
	}
	if ctx.Err() != nil {
		return b.failBeforeLaunch(decision.TransactionID, "cancelled before launch", msgCancelled)
	}

	descriptor := task.Descriptor{
		TransactionID:      decision.TransactionID,
		Task:               taskDescription,
		MaxIterations:      options.MaxIterations,
		TimeoutMs:          options.Timeout.Milliseconds(),
		EnvironmentProfile: options.EnvironmentProfile,
		CredentialRef:      string(grant.Ref),
	}
	descriptor.Normalize()

	if err := b.ledger.Transition(decision.TransactionID, ledger.StatusExecuting, ""); err != nil {
		return Response{Message: msgInternal}, fmt.Errorf("recording execution start: %w", err)
	}

	result, execErr := b.channel.Execute(ctx, descriptor)
	if execErr != nil {
		return b.recordExecutionFailure(decision.TransactionID, execErr, logger)
	}

	if !result.Success {
		b.failed.Add(1)
		if err := b.ledger.Transition(decision.TransactionID, ledger.StatusFailed, "worker reported failure: "+result.Error); err != nil {
			return Response{Message: msgInternal}, fmt.Errorf("recording worker failure: %w", err)
		}
		logger.Info("task unsuccessful", "iterations", result.Iterations, "error", result.Error)
		return Response{
			TransactionID:         decision.TransactionID,
			Message:               msgWorkerUnsuccessful,
			SafetyChecksTriggered: result.SafetyChecksTriggered,
			DurationSeconds:       result.DurationSeconds,
		}, nil
	}

	b.completed.Add(1)
	if err := b.ledger.Transition(decision.TransactionID, ledger.StatusCompleted, ""); err != nil {
		return Response{Message: msgInternal}, fmt.Errorf("recording completion: %w", err)
	}
	return Response{
		Success:               true,
		TransactionID:         decision.TransactionID,
		Message:               summarize(result),
		Actions:               result.ExecutionLog,
		SafetyChecksTriggered: result.SafetyChecksTriggered,
		DurationSeconds:       result.DurationSeconds,
	}, nil
}

// failBeforeLaunch terminates an approved transaction that never
// reached the worker.
func (b *Bridge) failBeforeLaunch(transactionID, reason, message string) (Response, error) {
	b.failed.Add(1)
	if err := b.ledger.Transition(transactionID, ledger.StatusFailed, reason); err != nil {
		return Response{Message: msgInternal}, fmt.Errorf("recording pre-launch failure: %w", err)
	}
	return Response{TransactionID: transactionID, Message: message}, nil
}

// recordExecutionFailure maps a handoff error to a terminal ledger
// state and a sanitized response. Diagnostics stay in the log.
func (b *Bridge) recordExecutionFailure(transactionID string, execErr error, logger *slog.Logger) (Response, error) {
	var (
		timeoutError *handoff.TimeoutError
		processError *handoff.ProcessError
		parseError   *handoff.ParseError
	)
	switch {
	case errors.As(execErr, &timeoutError):
		b.timedOut.Add(1)
		if err := b.ledger.Transition(transactionID, ledger.StatusTimedOut, timeoutError.Error()); err != nil {
			return Response{Message: msgInternal}, fmt.Errorf("recording timeout: %w", err)
		}
		return Response{TransactionID: transactionID, Message: msgTimedOut}, nil

	case errors.As(execErr, &processError):
		b.failed.Add(1)
		logger.Error("worker process failed", "exit_code", processError.ExitCode, "stderr", processError.Stderr)
		if err := b.ledger.Transition(transactionID, ledger.StatusFailed, processError.Error()); err != nil {
			return Response{Message: msgInternal}, fmt.Errorf("recording worker failure: %w", err)
		}
		return Response{TransactionID: transactionID, Message: msgWorkerError}, nil

	case errors.As(execErr, &parseError):
		b.failed.Add(1)
		logger.Error("worker result unparseable", "error", parseError.Err)
		if err := b.ledger.Transition(transactionID, ledger.StatusFailed, parseError.Error()); err != nil {
			return Response{Message: msgInternal}, fmt.Errorf("recording parse failure: %w", err)
		}
		return Response{TransactionID: transactionID, Message: msgWorkerError}, nil

	case errors.Is(execErr, context.Canceled) || errors.Is(execErr, context.DeadlineExceeded):
		b.failed.Add(1)
		if err := b.ledger.Transition(transactionID, ledger.StatusFailed, "cancelled during execution"); err != nil {
			return Response{Message: msgInternal}, fmt.Errorf("recording cancellation: %w", err)
		}
		return Response{TransactionID: transactionID, Message: msgCancelled}, nil

	default:
		b.failed.Add(1)
		logger.Error("worker handoff failed", "error", execErr)
		if err := b.ledger.Transition(transactionID, ledger.StatusFailed, execErr.Error()); err != nil {
			return Response{Message: msgInternal}, fmt.Errorf("recording handoff failure: %w", err)
		}
		return Response{TransactionID: transactionID, Message: msgWorkerError}, nil
	}
}

// Counters returns a snapshot of execution counters by outcome.
func (b *Bridge) Counters() Counters {
	return Counters{
		Completed:        b.completed.Load(),
		Failed:           b.failed.Load(),
		TimedOut:         b.timedOut.Load(),
		Denied:           b.denied.Load(),
		CredentialDenied: b.credentialDenied.Load(),
	}
}

// summarize renders the success message from the worker's report.
func summarize(result task.ExecutionResult) string {
	actions := len(result.ExecutionLog)
	message := fmt.Sprintf("task completed: %d actions in %d iterations (%.1fs)",
		actions, result.Iterations, result.DurationSeconds)
	if result.SafetyChecksTriggered > 0 {
		message += fmt.Sprintf(", %d safety interventions", result.SafetyChecksTriggered)
	}
	return message
}
