// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/proctor-works/proctor/lib/secret"
)

func mustBuffer(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromBytes([]byte(value))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	return buffer
}

func registered(t *testing.T, entries map[string]string) *Broker {
	t.Helper()
	broker := NewBroker(nil)
	t.Cleanup(func() { broker.Close() })
	for capability, value := range entries {
		if _, err := broker.Register(capability, mustBuffer(t, value)); err != nil {
			t.Fatalf("Register(%s): %v", capability, err)
		}
	}
	return broker
}

func TestGrantExactMatch(t *testing.T) {
	broker := registered(t, map[string]string{"desktop/control": "secret-a"})
	expiry := time.Now().Add(time.Hour)

	decision := broker.RequestCredential("tx-1", []string{"desktop/control"}, expiry)
	if !decision.Granted {
		t.Fatalf("denied: %s", decision.Reason)
	}
	if decision.Capability != "desktop/control" {
		t.Errorf("Capability = %q", decision.Capability)
	}
	if !strings.HasPrefix(string(decision.Ref), "ref-") {
		t.Errorf("Ref = %q, want ref- prefix", decision.Ref)
	}
	if !decision.ExpiresAt.Equal(expiry) {
		t.Errorf("ExpiresAt = %v, want %v", decision.ExpiresAt, expiry)
	}
}

func TestDenyWhenUnavailable(t *testing.T) {
	broker := registered(t, map[string]string{"desktop/control": "secret-a"})

	decision := broker.RequestCredential("tx-1", []string{"browser/session", "mail/send"}, time.Now())
	if decision.Granted {
		t.Fatal("granted for unregistered capabilities")
	}
	if decision.Reason != ReasonUnavailable {
		t.Errorf("Reason = %q, want %q", decision.Reason, ReasonUnavailable)
	}
	if len(decision.CapabilitiesChecked) != 2 {
		t.Errorf("CapabilitiesChecked = %v", decision.CapabilitiesChecked)
	}
}

func TestSpecificBeatsFallback(t *testing.T) {
	broker := registered(t, map[string]string{
		"*":               "general-secret",
		"desktop/control": "specific-secret",
	})

	decision := broker.RequestCredential("tx-1", []string{"desktop/control"}, time.Now())
	if !decision.Granted {
		t.Fatalf("denied: %s", decision.Reason)
	}
	if decision.Ref != DeriveRef("desktop/control", []byte("specific-secret")) {
		t.Error("general-purpose fallback won over the specific credential")
	}
}

func TestPatternMatching(t *testing.T) {
	broker := registered(t, map[string]string{
		"browser/*":  "one-level",
		"browser/**": "any-depth",
		"*":          "fallback",
	})

	tests := []struct {
		capability string
		wantSecret string
	}{
		// "browser/*" and "browser/**" tie on prefix; first
		// registration order is not observable here, so just require
		// a non-fallback grant.
		{"browser/profile/default", "any-depth"},
		{"mail/send", "fallback"},
	}
	for _, test := range tests {
		decision := broker.RequestCredential("tx-1", []string{test.capability}, time.Now())
		if !decision.Granted {
			t.Fatalf("RequestCredential(%q) denied: %s", test.capability, decision.Reason)
		}
		if test.wantSecret == "fallback" {
			if decision.Ref != DeriveRef("*", []byte("fallback")) {
				t.Errorf("%q: expected the fallback credential", test.capability)
			}
			continue
		}
		if decision.Ref == DeriveRef("*", []byte("fallback")) {
			t.Errorf("%q resolved to the fallback, want a pattern match", test.capability)
		}
	}
}

func TestFirstRequiredCapabilityWins(t *testing.T) {
	broker := registered(t, map[string]string{
		"desktop/control": "secret-a",
		"browser/session": "secret-b",
	})

	decision := broker.RequestCredential("tx-1", []string{"browser/session", "desktop/control"}, time.Now())
	if !decision.Granted || decision.Capability != "browser/session" {
		t.Errorf("decision = %+v, want grant for browser/session", decision)
	}
}

func TestDecisionNeverLeaksSecret(t *testing.T) {
	const rawSecret = "hunter2-super-secret-token"
	broker := registered(t, map[string]string{"desktop/control": rawSecret})

	granted := broker.RequestCredential("tx-1", []string{"desktop/control"}, time.Now())
	denied := broker.RequestCredential("tx-2", []string{"absent"}, time.Now())

	for _, decision := range []Decision{granted, denied} {
		for _, rendering := range []string{
			decision.String(),
			fmt.Sprintf("%v", decision),
			fmt.Sprintf("%+v", decision),
		} {
			if strings.Contains(rendering, rawSecret) {
				t.Fatalf("decision rendering leaks the secret: %s", rendering)
			}
		}
	}
}

func TestRefIsStableAndOneWay(t *testing.T) {
	first := DeriveRef("desktop/control", []byte("material"))
	second := DeriveRef("desktop/control", []byte("material"))
	if first != second {
		t.Error("ref derivation is not stable")
	}

	differentCapability := DeriveRef("browser/session", []byte("material"))
	if differentCapability == first {
		t.Error("refs collide across capabilities")
	}

	differentSecret := DeriveRef("desktop/control", []byte("other"))
	if differentSecret == first {
		t.Error("refs collide across secret values")
	}

	if strings.Contains(string(first), "material") {
		t.Error("ref contains the secret")
	}
}

func TestRegisterReplacesExisting(t *testing.T) {
	broker := registered(t, map[string]string{"desktop/control": "old"})

	ref, err := broker.Register("desktop/control", mustBuffer(t, "new"))
	if err != nil {
		t.Fatal(err)
	}

	decision := broker.RequestCredential("tx-1", []string{"desktop/control"}, time.Now())
	if decision.Ref != ref {
		t.Errorf("Ref = %q, want the replacement's ref %q", decision.Ref, ref)
	}
}

func TestRegisterValidation(t *testing.T) {
	broker := NewBroker(nil)
	defer broker.Close()

	if _, err := broker.Register("", mustBuffer(t, "x")); err == nil {
		t.Error("Register with empty capability succeeded")
	}
	if _, err := broker.Register("desktop/control", nil); err == nil {
		t.Error("Register with nil material succeeded")
	}
}

func TestClosedBrokerRejectsRegister(t *testing.T) {
	broker := NewBroker(nil)
	broker.Close()
	if _, err := broker.Register("desktop/control", mustBuffer(t, "x")); err == nil {
		t.Error("Register after Close succeeded")
	}
}
