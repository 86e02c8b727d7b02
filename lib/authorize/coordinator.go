// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package authorize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/proctor-works/proctor/ledger"
	"github.com/proctor-works/proctor/lib/clock"
	"github.com/proctor-works/proctor/lib/risk"
)

// DefaultApprovalWindow is how long an approval remains honorable
// after it is issued.
const DefaultApprovalWindow = time.Hour

// Decision is the outcome of an authorization request.
type Decision struct {
	// TransactionID is the freshly minted identifier for this
	// request. Present on both approvals and denials.
	TransactionID string

	// Approved is true when the task may proceed to credential
	// brokering.
	Approved bool

	// RiskTier is the classifier's verdict.
	RiskTier risk.Tier

	// Reason justifies the decision. For denials it lists the matched
	// high-risk reasons; safe to show to callers.
	Reason string

	// ExpiresAt is when the approval stops being honorable. Zero on
	// denials.
	ExpiresAt time.Time
}

// Counters is a snapshot of the coordinator's monotonic counters.
type Counters struct {
	PermissionRequests  int64
	ApprovedPermissions int64
}

// Coordinator issues authorization decisions and records every request
// in the ledger. Safe for concurrent use.
type Coordinator struct {
	classifier *risk.Classifier
	ledger     *ledger.Ledger
	gate       ApprovalGate
	clock      clock.Clock
	logger     *slog.Logger
	window     time.Duration

	permissionRequests  atomic.Int64
	approvedPermissions atomic.Int64
}

// CoordinatorConfig configures a Coordinator. Ledger and Classifier
// are required; the rest default sensibly.
type CoordinatorConfig struct {
	Classifier *risk.Classifier
	Ledger     *ledger.Ledger

	// Gate reviews policy-approved requests. Nil means AutoApprove.
	Gate ApprovalGate

	// ApprovalWindow bounds how long approvals are honorable.
	// Zero means DefaultApprovalWindow.
	ApprovalWindow time.Duration

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(config CoordinatorConfig) (*Coordinator, error) {
	if config.Classifier == nil {
		return nil, fmt.Errorf("authorize: classifier is required")
	}
	if config.Ledger == nil {
		return nil, fmt.Errorf("authorize: ledger is required")
	}
	if config.Gate == nil {
		config.Gate = AutoApprove()
	}
	if config.ApprovalWindow <= 0 {
		config.ApprovalWindow = DefaultApprovalWindow
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Coordinator{
		classifier: config.Classifier,
		ledger:     config.Ledger,
		gate:       config.Gate,
		clock:      config.Clock,
		logger:     config.Logger,
		window:     config.ApprovalWindow,
	}, nil
}

// Authorize decides whether requesterID may run the described task.
//
// A fresh transaction is recorded in the requested state before the
// decision, then immediately transitioned to approved or denied, so
// the ledger never misses a request regardless of outcome. High-tier
// tasks are denied outright; low- and medium-tier tasks go to the
// approval gate.
func (c *Coordinator) Authorize(ctx context.Context, requesterID, taskDescription string) (Decision, error) {
	transactionID := uuid.New().String()
	c.permissionRequests.Add(1)

	classification := c.classifier.Classify(taskDescription)

	err := c.ledger.Append(ledger.Transaction{
		TransactionID:   transactionID,
		RequesterID:     requesterID,
		TaskDescription: taskDescription,
		RiskTier:        classification.Tier,
		Status:          ledger.StatusRequested,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("recording authorization request: %w", err)
	}

	decision := Decision{
		TransactionID: transactionID,
		RiskTier:      classification.Tier,
	}

	if classification.Tier == risk.TierHigh {
		decision.Reason = denialReason(classification.MatchedReasons)
		if err := c.ledger.Transition(transactionID, ledger.StatusDenied, decision.Reason); err != nil {
			return Decision{}, fmt.Errorf("recording denial: %w", err)
		}
		c.logger.Info("authorization denied",
			"transaction_id", transactionID,
			"requester_id", requesterID,
			"risk_tier", classification.Tier.String(),
			"reason", decision.Reason)
		return decision, nil
	}

	// Extension point: the gate reviews policy-approved requests. The
	// default gate auto-approves.
	verdict, err := c.gate.Review(ctx, ReviewRequest{
		TransactionID:   transactionID,
		RequesterID:     requesterID,
		TaskDescription: taskDescription,
		Classification:  classification,
	})
	if err != nil {
		reason := "approval review unavailable"
		if ledgerErr := c.ledger.Transition(transactionID, ledger.StatusDenied, reason); ledgerErr != nil {
			return Decision{}, fmt.Errorf("recording denial after gate failure: %w", ledgerErr)
		}
		decision.Reason = reason
		c.logger.Error("approval gate failed",
			"transaction_id", transactionID,
			"error", err)
		return decision, nil
	}
	if !verdict.Approved {
		decision.Reason = verdict.Reason
		if err := c.ledger.Transition(transactionID, ledger.StatusDenied, verdict.Reason); err != nil {
			return Decision{}, fmt.Errorf("recording denial: %w", err)
		}
		c.logger.Info("authorization vetoed by gate",
			"transaction_id", transactionID,
			"requester_id", requesterID)
		return decision, nil
	}

	decision.Approved = true
	decision.Reason = fmt.Sprintf("risk tier %s: %s", classification.Tier, verdict.Reason)
	decision.ExpiresAt = c.clock.Now().Add(c.window)
	if err := c.ledger.Transition(transactionID, ledger.StatusApproved, decision.Reason); err != nil {
		return Decision{}, fmt.Errorf("recording approval: %w", err)
	}
	c.approvedPermissions.Add(1)

	c.logger.Info("authorization approved",
		"transaction_id", transactionID,
		"requester_id", requesterID,
		"risk_tier", classification.Tier.String(),
		"expires_at", decision.ExpiresAt)
	return decision, nil
}

// Counters returns a snapshot of the request counters.
func (c *Coordinator) Counters() Counters {
	return Counters{
		PermissionRequests:  c.permissionRequests.Load(),
		ApprovedPermissions: c.approvedPermissions.Load(),
	}
}

// denialReason joins the matched high-risk reasons into the denial
// message shown to the caller.
func denialReason(reasons []string) string {
	if len(reasons) == 0 {
		return "task classified high risk"
	}
	return "task classified high risk: " + strings.Join(reasons, "; ")
}
