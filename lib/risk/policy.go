// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/tidwall/jsonc"
)

// Policy holds operator-supplied classification rules, loaded from a
// JSONC file. Rules extend the built-in policy; they cannot remove
// built-in rules (an operator can only make classification stricter or
// add reasons, never weaken the high-risk net).
type Policy struct {
	High   []Rule
	Medium []Rule
	Low    []Rule
}

// policyFile is the on-disk shape of an operator policy. The file is
// JSONC, so operators can annotate their rules:
//
//	{
//	  // Deny anything touching the payroll system outright.
//	  "high": [
//	    {"name": "payroll", "pattern": "\\bpayroll\\b", "reason": "payroll system access"}
//	  ],
//	  "medium": [],
//	  "low": []
//	}
type policyFile struct {
	High   []ruleSpec `json:"high"`
	Medium []ruleSpec `json:"medium"`
	Low    []ruleSpec `json:"low"`
}

type ruleSpec struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Reason  string `json:"reason"`
}

// LoadPolicy reads and compiles an operator policy from a JSONC file.
// Patterns are compiled case-insensitive, matching the built-in rule
// behavior. Returns an error naming the offending rule when a pattern
// does not compile or a rule is missing a field.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading risk policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy compiles an operator policy from JSONC bytes.
func ParsePolicy(data []byte) (*Policy, error) {
	var file policyFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing risk policy: %w", err)
	}

	policy := &Policy{}
	var err error
	if policy.High, err = compileRules(file.High, "high"); err != nil {
		return nil, err
	}
	if policy.Medium, err = compileRules(file.Medium, "medium"); err != nil {
		return nil, err
	}
	if policy.Low, err = compileRules(file.Low, "low"); err != nil {
		return nil, err
	}
	return policy, nil
}

func compileRules(specs []ruleSpec, tier string) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == "" || spec.Pattern == "" || spec.Reason == "" {
			return nil, fmt.Errorf("risk policy: %s rule %q: name, pattern, and reason are all required", tier, spec.Name)
		}
		pattern, err := regexp.Compile(`(?i)` + spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("risk policy: %s rule %q: %w", tier, spec.Name, err)
		}
		rules = append(rules, Rule{Name: spec.Name, Pattern: pattern, Reason: spec.Reason})
	}
	return rules, nil
}
