// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// proctor-bridge runs one supervised task invocation from the command
// line: classify, authorize, broker credentials, hand off to the
// worker, and print the sanitized response as JSON on stdout.
//
// Configuration comes from the file named by PROCTOR_CONFIG or
// --config. The exit code is 0 when the task completed successfully
// and 1 otherwise; the transaction outcome is always recorded in the
// audit log either way.
package main
