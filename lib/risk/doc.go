// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package risk classifies natural-language task descriptions into
// coarse risk tiers. The classifier is a pure function over ordered
// rule sets: high-risk patterns (destructive filesystem operations,
// privilege escalation, credential and financial keywords, software
// installation), medium-risk patterns (UI interaction verbs), and
// low-risk patterns (read-only verbs).
//
// High-risk rules are evaluated first and dominate: a task that both
// clicks a button and deletes a file is high risk. When no high-risk
// rule matches, medium-risk rules decide; when nothing matches at all,
// the tier defaults to low.
//
// The built-in policy is compiled in. Operators can prepend their own
// rules from a JSONC policy file (comments allowed); operator rules in
// a tier are evaluated before the built-ins of that tier.
package risk
