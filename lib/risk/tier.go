// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package risk

import "fmt"

// Tier is the coarse risk classification of a task description.
type Tier int

const (
	// TierLow covers read-only operations: screenshots, reading and
	// analyzing what is on screen.
	TierLow Tier = iota

	// TierMedium covers UI interaction: clicking, typing, navigating.
	TierMedium

	// TierHigh covers destructive, privileged, or sensitive
	// operations. High-tier tasks are always denied by policy.
	TierHigh
)

// String returns "low", "medium", or "high".
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// MarshalText implements encoding.TextMarshaler so tiers serialize as
// "low"/"medium"/"high" in JSON audit records and CBOR archives.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	tier, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}

// ParseTier parses a tier from its string representation.
func ParseTier(name string) (Tier, error) {
	switch name {
	case "low":
		return TierLow, nil
	case "medium":
		return TierMedium, nil
	case "high":
		return TierHigh, nil
	default:
		return TierLow, fmt.Errorf("unknown risk tier %q", name)
	}
}
