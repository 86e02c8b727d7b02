// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package risk

import "regexp"

// Rule is one classification pattern. Patterns are case-insensitive
// regular expressions matched against the whole task description.
type Rule struct {
	// Name is a stable identifier for the rule, used in audit records
	// and denial reasons. Names are safe to show to callers.
	Name string

	// Pattern matches task descriptions this rule applies to.
	Pattern *regexp.Regexp

	// Reason is the human-readable justification attached to the
	// classification when this rule matches.
	Reason string
}

// mustRule compiles a built-in rule. Built-in patterns are constants;
// a compile failure is a programming error.
func mustRule(name, pattern, reason string) Rule {
	return Rule{
		Name:    name,
		Pattern: regexp.MustCompile(`(?i)` + pattern),
		Reason:  reason,
	}
}

// Built-in rule sets. Order within a set matters only for reason
// ordering — every matching rule contributes its reason.
var (
	builtinHigh = []Rule{
		mustRule("fs-delete", `\b(delete|remove|erase|wipe)\b.*\b(file|folder|director(y|ies)|drive|disk|partition|everything)`, "destructive filesystem operation"),
		mustRule("fs-rm", `\brm\s+(-[a-z]*\s+)*`, "shell file removal"),
		mustRule("fs-format", `\b(format|reformat)\b.*\b(drive|disk|partition|volume)`, "disk format operation"),
		mustRule("priv-escalation", `\b(sudo|superuser|root access|administrator|privilege|elevated?)\b`, "privilege escalation"),
		mustRule("cred-access", `\b(password|credential|secret key|api key|private key|keychain|vault)\b`, "credential material access"),
		mustRule("financial", `\b(bank|credit card|debit card|payment|wire transfer|crypto ?wallet|social security)\b`, "financial or identity data access"),
		mustRule("software-install", `\b(install|uninstall|download and run|curl .*\| *(ba)?sh)\b`, "software installation or download"),
		mustRule("system-config", `\b(registry|system settings?|firewall|antivirus)\b.*\b(change|modify|disable|edit)`, "system configuration change"),
	}

	builtinMedium = []Rule{
		mustRule("ui-click", `\b(click|double.?click|right.?click|press|tap)\b`, "pointer interaction"),
		mustRule("ui-type", `\b(type|enter text|fill (in|out)|input)\b`, "keyboard input"),
		mustRule("ui-navigate", `\b(navigate|go to|open|visit|browse)\b`, "navigation"),
		mustRule("ui-scroll", `\b(scroll|swipe|drag|drop)\b`, "scroll or drag interaction"),
	}

	builtinLow = []Rule{
		mustRule("read-screenshot", `\b(screenshot|capture|snapshot)\b`, "screen capture"),
		mustRule("read-view", `\b(view|look|watch|observe)\b`, "passive viewing"),
		mustRule("read-analyze", `\b(read|analyze|analyse|inspect|summari[sz]e|describe)\b`, "read-only analysis"),
	}
)
