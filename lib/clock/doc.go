// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now, time.After, or time.Sleep directly. In production, Real()
// provides the standard library behavior. In tests, Fake() provides a
// deterministic clock that advances only when Advance is called.
//
// Add a Clock field to structs that compute deadlines or expiries:
//
//	type Coordinator struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	c := &Coordinator{clock: clock.Real()}
//
// In tests:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c := &Coordinator{clock: fake}
//	fake.Advance(time.Hour) // expire approvals deterministically
package clock
