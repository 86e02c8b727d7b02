// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// maxAuditTaskText bounds the task free text carried into audit
// records. Audit needs enough of the description to make the record
// meaningful, not the full prompt.
const maxAuditTaskText = 160

// AuditRecord is one line of the audit log: the terminal outcome of a
// single transaction. Records carry identifiers, tiers, timestamps,
// and reasons; never credential material, worker stderr, or raw worker
// output.
type AuditRecord struct {
	TransactionID string    `json:"transaction_id"`
	RequesterID   string    `json:"requester_id"`
	Task          string    `json:"task"`
	RiskTier      string    `json:"risk_tier"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	DecidedAt     time.Time `json:"decided_at,omitzero"`
	CompletedAt   time.Time `json:"completed_at"`
	Reason        string    `json:"reason,omitempty"`
	CredentialRef string    `json:"credential_ref,omitempty"`
}

// auditRecordFor builds the audit record for a terminal transaction.
// The task text is truncated to maxAuditTaskText runes.
func auditRecordFor(transaction *Transaction) AuditRecord {
	task := transaction.TaskDescription
	if runes := []rune(task); len(runes) > maxAuditTaskText {
		task = string(runes[:maxAuditTaskText])
	}
	reason := transaction.DenialReason
	if reason == "" {
		reason = transaction.ApprovalReason
	}
	return AuditRecord{
		TransactionID: transaction.TransactionID,
		RequesterID:   transaction.RequesterID,
		Task:          task,
		RiskTier:      transaction.RiskTier.String(),
		Status:        transaction.Status,
		CreatedAt:     transaction.CreatedAt,
		DecidedAt:     transaction.DecidedAt,
		CompletedAt:   transaction.CompletedAt,
		Reason:        reason,
		CredentialRef: transaction.CredentialRef,
	}
}

// AuditLog writes structured JSONL audit records to a file. Each line
// is an independent JSON object, making the log:
//
//   - Crash-safe: a SIGKILL mid-run preserves all completed records.
//     A single JSON document would be truncated and unparseable.
//   - Streamable: operators can tail the file for live terminal
//     outcomes instead of waiting for process exit.
//
// All methods are nil-safe no-ops, so the ledger can emit audit
// records unconditionally without checking whether auditing is
// configured.
type AuditLog struct {
	mu      sync.Mutex
	logger  *slog.Logger
	file    *os.File
	encoder *json.Encoder
}

// NewAuditLog opens (appending) a JSONL audit log at the given path.
// The file is created with mode 0600 if it does not exist.
func NewAuditLog(path string, logger *slog.Logger) (*AuditLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	return &AuditLog{
		logger:  logger,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Write appends one audit record. Write failures are logged, not
// returned — a full disk must not turn a completed execution into an
// error, but it must not pass silently either.
func (a *AuditLog) Write(record AuditRecord) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.encoder.Encode(record); err != nil {
		a.logger.Error("audit record write failed",
			"transaction_id", record.TransactionID,
			"error", err)
	}
}

// Close flushes and closes the audit log file.
func (a *AuditLog) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
