// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package authorize decides whether a privileged task may proceed.
//
// The coordinator mints a transaction ID, records the request in the
// ledger, classifies the task with lib/risk, and applies the decision
// rule: high-tier tasks are denied with the matched reasons; low- and
// medium-tier tasks are approved with an expiry window.
//
// Approval is policy-automatic in this design. The ApprovalGate
// interface is the named extension point for a future human-in-the-loop
// workflow: a gate reviews policy-approved requests before the decision
// is returned, and a remote or interactive gate can be installed
// without changing any other component. High-tier denials are not
// reviewable — no gate can approve what the risk policy denies.
package authorize
