// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"time"

	"github.com/proctor-works/proctor/lib/risk"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	// StatusRequested is the initial state, recorded before the
	// authorization decision is made.
	StatusRequested Status = "requested"

	// StatusApproved means the authorization coordinator approved the
	// task for execution.
	StatusApproved Status = "approved"

	// StatusDenied is terminal: the risk policy denied the task.
	StatusDenied Status = "denied"

	// StatusCredentialDenied is terminal: no usable credential
	// reference could be granted.
	StatusCredentialDenied Status = "credential_denied"

	// StatusExecuting means a worker process has been (or is about to
	// be) launched for this transaction.
	StatusExecuting Status = "executing"

	// StatusCompleted is terminal: the worker returned a result.
	StatusCompleted Status = "completed"

	// StatusFailed is terminal: the worker failed, produced
	// unparseable output, or the invocation was cancelled.
	StatusFailed Status = "failed"

	// StatusTimedOut is terminal: the worker exceeded its allotted
	// wall-clock time and was terminated.
	StatusTimedOut Status = "timed_out"
)

// Terminal reports whether the status is a terminal outcome. Terminal
// transactions are immutable.
func (s Status) Terminal() bool {
	switch s {
	case StatusDenied, StatusCredentialDenied, StatusCompleted, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

// Transaction is the unit of accountability for one privileged-task
// request. Created by the authorization coordinator; transitioned by
// the credential broker and the task handoff channel; immutable once
// terminal.
type Transaction struct {
	// TransactionID is the opaque unique identifier minted at
	// authorization request time.
	TransactionID string `json:"transaction_id"`

	// RequesterID identifies the calling agent or component.
	RequesterID string `json:"requester_id"`

	// TaskDescription is the free-text description of the requested
	// action.
	TaskDescription string `json:"task_description"`

	// RiskTier is the classifier's verdict for the task.
	RiskTier risk.Tier `json:"risk_tier"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// CreatedAt is when the transaction was recorded.
	CreatedAt time.Time `json:"created_at"`

	// DecidedAt is when the authorization decision was made. Zero
	// until decided.
	DecidedAt time.Time `json:"decided_at,omitzero"`

	// CompletedAt is when the transaction reached a terminal status.
	// Zero until terminal.
	CompletedAt time.Time `json:"completed_at,omitzero"`

	// ApprovalReason justifies an approval.
	ApprovalReason string `json:"approval_reason,omitempty"`

	// DenialReason justifies a denial or terminal failure.
	DenialReason string `json:"denial_reason,omitempty"`

	// CredentialRef is the opaque hash-derived credential handle once
	// granted. Never the raw secret.
	CredentialRef string `json:"credential_ref,omitempty"`
}
