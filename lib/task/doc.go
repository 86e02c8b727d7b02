// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package task defines the serialized contract between the bridge and
// the worker process.
//
// A [Descriptor] is written to a transient JSON file whose name embeds
// the transaction ID; the worker receives the file path as its only
// argument and reports back an [ExecutionResult] on stdout. These two
// JSON shapes are the only bit-exact wire contracts in the system.
// Secret material never crosses this boundary: the descriptor carries
// an opaque credential reference that the worker resolves through its
// own channel.
package task
