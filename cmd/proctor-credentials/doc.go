// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// proctor-credentials manages age-encrypted capability bundles for the
// bridge's credential broker.
//
// A bundle is a JSON object mapping capability identifiers to secret
// values, encrypted to one or more age recipients. The bridge decrypts
// it at startup with its identity key; this tool creates and inspects
// bundles without ever printing secret material.
package main
