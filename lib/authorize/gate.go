// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package authorize

import (
	"context"

	"github.com/proctor-works/proctor/lib/risk"
)

// ReviewRequest is the information a gate sees about a policy-approved
// request. It never includes credential material.
type ReviewRequest struct {
	TransactionID   string
	RequesterID     string
	TaskDescription string
	Classification  risk.Classification
}

// Verdict is a gate's ruling on a request.
type Verdict struct {
	// Approved is false when the gate vetoes the request.
	Approved bool

	// Reason is a human-readable justification, recorded in the
	// transaction and shown to the caller on veto.
	Reason string
}

// ApprovalGate reviews requests that the risk policy has already
// approved. The coordinator consults the gate between the policy
// decision and the returned AuthorizationDecision; gates never see
// high-tier requests (those are denied before review).
//
// Implementations may block on external input — the coordinator passes
// its context through, so a remote approver is bounded by the caller's
// deadline.
type ApprovalGate interface {
	Review(ctx context.Context, request ReviewRequest) (Verdict, error)
}

// AutoApprove returns the default gate: every policy-approved request
// passes unchanged. This preserves the observed automatic-approval
// behavior; installing a real gate is a configuration change, not a
// code change.
func AutoApprove() ApprovalGate { return autoApprove{} }

type autoApprove struct{}

func (autoApprove) Review(ctx context.Context, request ReviewRequest) (Verdict, error) {
	return Verdict{Approved: true, Reason: "auto-approved by policy"}, nil
}
