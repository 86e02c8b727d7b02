// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/proctor-works/proctor/ledger"
	"github.com/proctor-works/proctor/lib/risk"
	"github.com/proctor-works/proctor/lib/secret"
)

func archiveKey(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	key, err := secret.NewFromBytes([]byte(value))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

func sampleTransactions() []ledger.Transaction {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return []ledger.Transaction{
		{
			TransactionID:   "tx-1",
			RequesterID:     "agent-7",
			TaskDescription: "Open the quarterly report",
			RiskTier:        risk.TierMedium,
			Status:          ledger.StatusCompleted,
			CreatedAt:       created,
			DecidedAt:       created.Add(time.Second),
			CompletedAt:     created.Add(time.Minute),
		},
		{
			TransactionID:   "tx-2",
			RequesterID:     "agent-8",
			TaskDescription: "Delete every file on the desktop",
			RiskTier:        risk.TierHigh,
			Status:          ledger.StatusDenied,
			DenialReason:    "task classified high risk",
			CreatedAt:       created.Add(time.Hour),
		},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	key := archiveKey(t, "archive-master-key")

	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			data, err := Export(sampleTransactions(), key, tag)
			if err != nil {
				t.Fatalf("Export: %v", err)
			}

			snapshot, err := Import(data, key)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			if len(snapshot.Transactions) != 2 {
				t.Fatalf("Transactions = %d entries", len(snapshot.Transactions))
			}
			got := snapshot.Transactions[0]
			if got.TransactionID != "tx-1" || got.Status != ledger.StatusCompleted || got.RiskTier != risk.TierMedium {
				t.Errorf("transaction[0] = %+v", got)
			}
			if !got.CompletedAt.Equal(time.Date(2026, 3, 1, 9, 1, 0, 0, time.UTC)) {
				t.Errorf("CompletedAt = %v", got.CompletedAt)
			}
		})
	}
}

func TestExportIsEncrypted(t *testing.T) {
	key := archiveKey(t, "archive-master-key")
	data, err := Export(sampleTransactions(), key, CompressionNone)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("quarterly report")) || bytes.Contains(data, []byte("agent-7")) {
		t.Error("archive contains plaintext transaction data")
	}
}

func TestImportWrongKey(t *testing.T) {
	data, err := Export(sampleTransactions(), archiveKey(t, "right-key"), CompressionZstd)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Import(data, archiveKey(t, "wrong-key")); err == nil {
		t.Error("Import succeeded with the wrong key")
	}
}

func TestImportDetectsHeaderTampering(t *testing.T) {
	key := archiveKey(t, "archive-master-key")
	data, err := Export(sampleTransactions(), key, CompressionZstd)
	if err != nil {
		t.Fatal(err)
	}

	// Flip a byte of the recorded uncompressed size. The header is
	// AEAD-bound, so this must fail authentication, not decompression.
	tampered := append([]byte(nil), data...)
	tampered[9] ^= 0xFF
	_, err = Import(tampered, key)
	if err == nil {
		t.Fatal("Import accepted a tampered header")
	}
	if !strings.Contains(err.Error(), "AEAD") {
		t.Errorf("error = %v, want authentication failure", err)
	}
}

func TestImportRejectsTruncated(t *testing.T) {
	if _, err := Import([]byte{0x01, 0x02}, archiveKey(t, "k")); err == nil {
		t.Error("Import accepted a truncated archive")
	}
}

func TestParseCompressionTag(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		tag, err := ParseCompressionTag(name)
		if err != nil {
			t.Errorf("ParseCompressionTag(%q): %v", name, err)
		}
		if tag.String() != name {
			t.Errorf("round trip %q -> %s", name, tag)
		}
	}
	if _, err := ParseCompressionTag("brotli"); err == nil {
		t.Error("ParseCompressionTag accepted an unknown name")
	}
}
