// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/proctor-works/proctor/lib/secret"
)

// ReasonUnavailable is the denial reason when no required capability
// resolves to a registered credential.
const ReasonUnavailable = "required credentials unavailable"

// Decision is the outcome of a credential request. It never contains
// secret material — only the derived reference and capability names.
type Decision struct {
	// Granted is true when a credential reference was issued.
	Granted bool

	// Ref is the issued reference. Empty on denial.
	Ref Ref

	// Capability is the required capability the grant satisfies.
	Capability string

	// Reason explains a denial. Empty on grants.
	Reason string

	// CapabilitiesChecked lists every capability that was requested,
	// for audit.
	CapabilitiesChecked []string

	// ExpiresAt matches the authorization window: the reference stops
	// being honorable when the approval does.
	ExpiresAt time.Time
}

// String returns a log-safe summary of the decision.
func (d Decision) String() string {
	if d.Granted {
		return fmt.Sprintf("granted %s for %s (expires %s)", d.Ref, d.Capability, d.ExpiresAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("denied: %s (checked %s)", d.Reason, strings.Join(d.CapabilitiesChecked, ", "))
}

// entry is one registered credential.
type entry struct {
	capability string
	material   *secret.Buffer
	ref        Ref
}

// Broker resolves capability requirements to credential references.
// Safe for concurrent use. The broker owns the secret buffers handed
// to Register and releases them on Close.
type Broker struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	entries []entry
	closed  bool
}

// NewBroker creates an empty broker. Logger defaults to
// slog.Default().
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{logger: logger}
}

// Register adds a credential for a capability identifier. The
// identifier is either exact ("desktop/control"), a pattern
// ("browser/*" for one extra segment, "browser/**" for any depth), or
// the general-purpose fallback "*". The broker takes ownership of the
// secret buffer.
//
// Returns the derived reference. Registering the same capability twice
// replaces the earlier entry (the old buffer is closed).
func (b *Broker) Register(capability string, material *secret.Buffer) (Ref, error) {
	if capability == "" {
		return "", fmt.Errorf("credential: capability is empty")
	}
	if material == nil || material.Len() == 0 {
		return "", fmt.Errorf("credential: secret material is empty")
	}

	ref := DeriveRef(capability, material.Bytes())

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return "", fmt.Errorf("credential: broker is closed")
	}

	for index := range b.entries {
		if b.entries[index].capability == capability {
			b.entries[index].material.Close()
			b.entries[index] = entry{capability: capability, material: material, ref: ref}
			b.logger.Info("credential replaced", "capability", capability, "ref", string(ref))
			return ref, nil
		}
	}

	b.entries = append(b.entries, entry{capability: capability, material: material, ref: ref})
	b.logger.Info("credential registered", "capability", capability, "ref", string(ref))
	return ref, nil
}

// RequestCredential resolves the required capabilities for an approved
// transaction. If at least one capability resolves, the single best
// match is granted: required capabilities are considered in order, and
// for each the most specific registered entry wins (exact beats
// pattern, longer pattern prefix beats shorter, "*" only as a last
// resort).
//
// The returned decision is safe to log in full: it carries only the
// derived reference, never secret material.
func (b *Broker) RequestCredential(transactionID string, required []string, expiresAt time.Time) Decision {
	checked := append([]string(nil), required...)

	b.mu.RLock()
	defer b.mu.RUnlock()

	var (
		bestEntry      *entry
		bestCapability string
		bestScore      int
	)
	for _, capability := range required {
		for index := range b.entries {
			score := matchScore(b.entries[index].capability, capability)
			if score > bestScore {
				bestScore = score
				bestEntry = &b.entries[index]
				bestCapability = capability
			}
		}
		// Required capabilities are in preference order: once one of
		// them resolved, later ones cannot override it.
		if bestEntry != nil {
			break
		}
	}

	if bestEntry == nil {
		b.logger.Info("credential denied",
			"transaction_id", transactionID,
			"capabilities", strings.Join(checked, ","))
		return Decision{
			Reason:              ReasonUnavailable,
			CapabilitiesChecked: checked,
		}
	}

	b.logger.Info("credential granted",
		"transaction_id", transactionID,
		"capability", bestCapability,
		"ref", string(bestEntry.ref))
	return Decision{
		Granted:             true,
		Ref:                 bestEntry.ref,
		Capability:          bestCapability,
		CapabilitiesChecked: checked,
		ExpiresAt:           expiresAt,
	}
}

// Close releases every registered secret buffer. The broker rejects
// further registrations after Close.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var firstError error
	for _, e := range b.entries {
		if err := e.material.Close(); err != nil && firstError == nil {
			firstError = err
		}
	}
	b.entries = nil
	return firstError
}

// matchScore rates how specifically a registered capability pattern
// matches a required capability. 0 means no match. Exact matches score
// highest; "/*" and "/**" patterns score by prefix length; the bare
// "*" fallback scores lowest.
func matchScore(pattern, capability string) int {
	if pattern == capability {
		return 1 << 20
	}
	if pattern == "*" {
		return 1
	}
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
		if strings.HasPrefix(capability, prefix+"/") {
			return 2 + len(prefix)
		}
		return 0
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		rest, matched := strings.CutPrefix(capability, prefix+"/")
		if matched && rest != "" && !strings.Contains(rest, "/") {
			return 2 + len(prefix)
		}
		return 0
	}
	return 0
}
