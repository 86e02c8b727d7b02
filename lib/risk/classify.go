// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package risk

// Classification is the outcome of classifying a task description.
type Classification struct {
	// Tier is the decided risk tier.
	Tier Tier

	// MatchedReasons lists the reasons of every rule in the deciding
	// tier that matched, in rule order. Empty when the tier is the
	// default (nothing matched).
	MatchedReasons []string
}

// Classifier evaluates ordered rule sets against task descriptions.
// The zero value is not usable; construct with NewClassifier.
//
// Classify is a pure function of the classifier's rules: no side
// effects, no I/O, deterministic for a given input.
type Classifier struct {
	high   []Rule
	medium []Rule
	low    []Rule
}

// NewClassifier returns a classifier using the built-in policy,
// optionally extended by an operator policy. Operator rules in a tier
// are evaluated before the built-ins of that tier. A nil policy yields
// the built-in behavior.
func NewClassifier(policy *Policy) *Classifier {
	classifier := &Classifier{
		high:   builtinHigh,
		medium: builtinMedium,
		low:    builtinLow,
	}
	if policy != nil {
		classifier.high = append(append([]Rule{}, policy.High...), builtinHigh...)
		classifier.medium = append(append([]Rule{}, policy.Medium...), builtinMedium...)
		classifier.low = append(append([]Rule{}, policy.Low...), builtinLow...)
	}
	return classifier
}

// Classify maps a task description to a risk tier with the reasons
// that decided it.
//
// Evaluation order: high rules first — any match makes the task high
// risk regardless of other content, and all matching high reasons are
// collected for the denial message. Otherwise medium rules decide;
// otherwise the low rules are consulted for reasons, and the tier
// defaults to low whether or not they match.
func (c *Classifier) Classify(taskDescription string) Classification {
	if reasons := matchAll(c.high, taskDescription); len(reasons) > 0 {
		return Classification{Tier: TierHigh, MatchedReasons: reasons}
	}
	if reasons := matchAll(c.medium, taskDescription); len(reasons) > 0 {
		return Classification{Tier: TierMedium, MatchedReasons: reasons}
	}
	return Classification{Tier: TierLow, MatchedReasons: matchAll(c.low, taskDescription)}
}

// matchAll returns the reasons of every rule that matches the
// description, deduplicated, in rule order.
func matchAll(rules []Rule, description string) []string {
	var reasons []string
	seen := make(map[string]bool)
	for _, rule := range rules {
		if !rule.Pattern.MatchString(description) {
			continue
		}
		if seen[rule.Reason] {
			continue
		}
		seen[rule.Reason] = true
		reasons = append(reasons, rule.Reason)
	}
	return reasons
}
