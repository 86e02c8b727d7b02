// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads bridge configuration.
//
// Configuration comes from a single YAML file named by the
// PROCTOR_CONFIG environment variable or an explicit --config flag.
// There are no fallbacks or automatic discovery; this keeps the
// configuration deterministic and auditable. The file may carry
// development, staging, and production sections that override base
// values when the environment matches.
package config
