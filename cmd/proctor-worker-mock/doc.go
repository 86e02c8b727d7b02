// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// proctor-worker-mock is a test worker that speaks the bridge's task
// file protocol without driving a real desktop. It reads the task
// descriptor from the path in its final argument, emits a few progress
// lines, and reports a sentinel-framed result on stdout.
//
// Keywords in the task text select failure modes for integration
// testing:
//
//   - "simulate-hang": sleep far past any reasonable timeout
//   - "simulate-garbage": print a non-JSON final line
//   - "simulate-exit": exit with a non-zero code
//   - "simulate-unsafe": report success=false with a safety
//     intervention count
//
// Any other task text completes successfully after a short scripted
// action sequence.
package main
