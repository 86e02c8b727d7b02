// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"fmt"
	"sync"

	"github.com/proctor-works/proctor/lib/clock"
)

// allowedTransitions maps each non-terminal status to the statuses it
// may move to. Terminal statuses have no entries: any transition away
// from them is rejected, enforcing the one-result invariant.
var allowedTransitions = map[Status]map[Status]bool{
	StatusRequested: {
		StatusApproved: true,
		StatusDenied:   true,
	},
	StatusApproved: {
		StatusCredentialDenied: true,
		StatusExecuting:        true,
		// A cancellation between approval and launch terminates the
		// transaction without a worker process.
		StatusFailed: true,
		StatusDenied: true,
	},
	StatusExecuting: {
		StatusCompleted: true,
		StatusFailed:    true,
		StatusTimedOut:  true,
	},
}

// Ledger is the append-only transaction store. Safe for concurrent
// use; all access is serialized behind a single mutex. Construct with
// New and inject into every component that records transaction state.
type Ledger struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries []*Transaction
	byID    map[string]*Transaction
	audit   *AuditLog
}

// New creates an empty ledger. The audit log is optional: pass nil to
// disable audit output (all audit writes become no-ops).
func New(clk clock.Clock, audit *AuditLog) *Ledger {
	if clk == nil {
		clk = clock.Real()
	}
	return &Ledger{
		clock: clk,
		byID:  make(map[string]*Transaction),
		audit: audit,
	}
}

// Append records a new transaction. The transaction's CreatedAt is
// stamped by the ledger's clock. Returns an error if the transaction
// ID is empty or already present.
func (l *Ledger) Append(transaction Transaction) error {
	if transaction.TransactionID == "" {
		return fmt.Errorf("ledger: transaction ID is empty")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byID[transaction.TransactionID]; exists {
		return fmt.Errorf("ledger: transaction %s already recorded", transaction.TransactionID)
	}

	transaction.CreatedAt = l.clock.Now()
	entry := &transaction
	l.entries = append(l.entries, entry)
	l.byID[transaction.TransactionID] = entry
	return nil
}

// Transition moves a transaction to a new status with a reason. The
// reason lands in ApprovalReason for StatusApproved and in
// DenialReason for every denial or failure status.
//
// Illegal transitions are errors, including any transition away from a
// terminal status: a transaction records exactly one terminal outcome,
// never zero, never more than one. Reaching a terminal status stamps
// CompletedAt and emits an audit record.
func (l *Ledger) Transition(transactionID string, status Status, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.byID[transactionID]
	if !exists {
		return fmt.Errorf("ledger: unknown transaction %s", transactionID)
	}
	if !allowedTransitions[entry.Status][status] {
		return fmt.Errorf("ledger: transaction %s: illegal transition %s -> %s", transactionID, entry.Status, status)
	}

	entry.Status = status
	switch status {
	case StatusApproved:
		entry.ApprovalReason = reason
		entry.DecidedAt = l.clock.Now()
	case StatusDenied:
		entry.DenialReason = reason
		if entry.DecidedAt.IsZero() {
			entry.DecidedAt = l.clock.Now()
		}
	default:
		if reason != "" {
			entry.DenialReason = reason
		}
	}

	if status.Terminal() {
		entry.CompletedAt = l.clock.Now()
		l.audit.Write(auditRecordFor(entry))
	}
	return nil
}

// SetCredentialRef attaches the granted credential reference to a
// transaction. Only the opaque hash-derived handle is ever stored.
func (l *Ledger) SetCredentialRef(transactionID, credentialRef string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.byID[transactionID]
	if !exists {
		return fmt.Errorf("ledger: unknown transaction %s", transactionID)
	}
	if entry.Status.Terminal() {
		return fmt.Errorf("ledger: transaction %s is terminal", transactionID)
	}
	entry.CredentialRef = credentialRef
	return nil
}

// Get returns a copy of the transaction with the given ID.
func (l *Ledger) Get(transactionID string) (Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.byID[transactionID]
	if !exists {
		return Transaction{}, false
	}
	return *entry, true
}

// All returns copies of every transaction in append order.
func (l *Ledger) All() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	transactions := make([]Transaction, len(l.entries))
	for index, entry := range l.entries {
		transactions[index] = *entry
	}
	return transactions
}

// Len returns the number of recorded transactions.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
